// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/aquadrop/models"
	"github.com/danielhkuo/aquadrop/testutil"
)

func decodeSubmission(t *testing.T, w *httptest.ResponseRecorder) (models.SubmissionResponse, models.CreatedRequestData) {
	t.Helper()
	var resp models.SubmissionResponse
	testutil.AssertJSON(t, w, &resp)
	var data models.CreatedRequestData
	if resp.Success {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			t.Fatalf("Failed to decode submission data: %v", err)
		}
	}
	return resp, data
}

func TestCreateRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewRequestHandler(db, cfg)
	consumerID := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	cookie := testutil.SessionCookie(t, cfg, consumerID, models.RoleConsumer)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"valid", models.CreateWaterRequest{VolumeLiters: 1500, DeliveryAddress: "12 Well Lane"}, http.StatusCreated, ""},
		{"with preferred date", models.CreateWaterRequest{VolumeLiters: 500, DeliveryAddress: "Farm 4", PreferredDate: ptrTime(time.Now().Add(48 * time.Hour))}, http.StatusCreated, ""},
		{"zero volume", models.CreateWaterRequest{VolumeLiters: 0, DeliveryAddress: "x"}, http.StatusBadRequest, CodeInvalidVolume},
		{"missing address", models.CreateWaterRequest{VolumeLiters: 10, DeliveryAddress: "   "}, http.StatusBadRequest, CodeMissingAddress},
		{"not json", "just a string", http.StatusBadRequest, CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/consumer/requests", tt.body, nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()

			handler.CreateRequest(w, req)

			testutil.AssertStatus(t, w, tt.wantStatus)
			resp, data := decodeSubmission(t, w)
			if tt.wantCode == "" {
				if !resp.Success || data.RequestID == "" || data.Duplicate {
					t.Errorf("Expected a fresh request, got %+v %+v", resp, data)
				}
				return
			}
			if resp.Success {
				t.Error("Expected success=false")
			}
			if resp.ErrorCode != tt.wantCode {
				t.Errorf("Expected error_code %s, got %s", tt.wantCode, resp.ErrorCode)
			}
		})
	}

	t.Run("without session", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/api/consumer/requests", models.CreateWaterRequest{VolumeLiters: 1, DeliveryAddress: "x"}, nil)
		w := httptest.NewRecorder()

		handler.CreateRequest(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
		resp, _ := decodeSubmission(t, w)
		if resp.Success || resp.ErrorCode != CodeUnauthorized {
			t.Errorf("Expected unauthorized envelope, got %+v", resp)
		}
	})
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestCreateRequest_ClientRefReplay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewRequestHandler(db, cfg)
	consumerID := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	otherID := testutil.CreateTestProfile(t, db, models.RoleConsumer)

	submit := func(userID string) (int, models.CreatedRequestData) {
		body := models.CreateWaterRequest{VolumeLiters: 800, DeliveryAddress: "Hill Rd", ClientRef: "offline-1"}
		req := testutil.MakeRequest("POST", "/api/consumer/requests", body, nil)
		req.AddCookie(testutil.SessionCookie(t, cfg, userID, models.RoleConsumer))
		w := httptest.NewRecorder()
		handler.CreateRequest(w, req)
		_, data := decodeSubmission(t, w)
		return w.Code, data
	}

	code, first := submit(consumerID)
	if code != http.StatusCreated || first.Duplicate {
		t.Fatalf("First submission: status %d, %+v", code, first)
	}

	code, replay := submit(consumerID)
	if code != http.StatusOK || !replay.Duplicate || replay.RequestID != first.RequestID {
		t.Errorf("Replay should return the original request: status %d, %+v", code, replay)
	}

	// client_ref is scoped per consumer
	code, other := submit(otherID)
	if code != http.StatusCreated || other.RequestID == first.RequestID {
		t.Errorf("Other consumer's submission should be new: status %d, %+v", code, other)
	}

	if n := testutil.CountRows(t, db, "water_request", ""); n != 2 {
		t.Errorf("Expected 2 requests, got %d", n)
	}
}

func TestListRequests(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewRequestHandler(db, cfg)
	mine := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	theirs := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	testutil.CreateTestRequest(t, db, mine)
	testutil.CreateTestRequest(t, db, mine)
	testutil.CreateTestRequest(t, db, theirs)

	req := testutil.MakeRequest("GET", "/api/consumer/requests", nil, nil)
	req.AddCookie(testutil.SessionCookie(t, cfg, mine, models.RoleConsumer))
	w := httptest.NewRecorder()

	handler.ListRequests(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var list []models.WaterRequest
	testutil.AssertJSON(t, w, &list)
	if len(list) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(list))
	}
	for _, wr := range list {
		if wr.ConsumerID != mine {
			t.Errorf("Listed another consumer's request %s", wr.ID)
		}
	}
}

func TestAcceptOffer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewRequestHandler(db, cfg)

	consumerID := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	supplierA := testutil.CreateTestProfile(t, db, models.RoleSupplier)
	supplierB := testutil.CreateTestProfile(t, db, models.RoleSupplier)
	requestID := testutil.CreateTestRequest(t, db, consumerID)

	future := time.Now().Add(time.Hour)
	winner := testutil.CreateTestOffer(t, db, requestID, supplierA, models.OfferActive, future)
	loser := testutil.CreateTestOffer(t, db, requestID, supplierB, models.OfferActive, future)
	lapsed := testutil.CreateTestOffer(t, db, requestID, supplierB, models.OfferExpired, time.Now().Add(-time.Hour))

	accept := func(offerID, userID string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/api/consumer/offers/"+offerID+"/accept", nil, nil)
		req.SetPathValue("id", offerID)
		req.AddCookie(testutil.SessionCookie(t, cfg, userID, models.RoleConsumer))
		w := httptest.NewRecorder()
		handler.AcceptOffer(w, req)
		return w
	}

	t.Run("other consumer cannot see the offer", func(t *testing.T) {
		stranger := testutil.CreateTestProfile(t, db, models.RoleConsumer)
		testutil.AssertStatus(t, accept(winner, stranger), http.StatusNotFound)
	})

	t.Run("expired offer", func(t *testing.T) {
		testutil.AssertStatus(t, accept(lapsed, consumerID), http.StatusConflict)
	})

	t.Run("accept", func(t *testing.T) {
		w := accept(winner, consumerID)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.AcceptOfferResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.RequestID != requestID || resp.Rejected != 1 {
			t.Errorf("Unexpected response %+v", resp)
		}

		if s := testutil.OfferStatus(t, db, winner); s != models.OfferAccepted {
			t.Errorf("Expected winner accepted, got %s", s)
		}
		if s := testutil.OfferStatus(t, db, loser); s != models.OfferRejected {
			t.Errorf("Expected sibling rejected, got %s", s)
		}
		if s := testutil.OfferStatus(t, db, lapsed); s != models.OfferExpired {
			t.Errorf("Expired offer should stay expired, got %s", s)
		}

		var status string
		db.QueryRow(`SELECT status FROM water_request WHERE id = $1`, requestID).Scan(&status)
		if status != models.RequestAccepted {
			t.Errorf("Expected request accepted, got %s", status)
		}

		if n := testutil.CountRows(t, db, "notification", "recipient_id = $1 AND kind = $2", supplierA, models.KindOfferAccepted); n != 1 {
			t.Errorf("Expected 1 offer_accepted notification, got %d", n)
		}
	})

	t.Run("second accept conflicts", func(t *testing.T) {
		testutil.AssertStatus(t, accept(loser, consumerID), http.StatusConflict)
	})

	t.Run("unknown offer", func(t *testing.T) {
		testutil.AssertStatus(t, accept("nope", consumerID), http.StatusNotFound)
	})
}

func TestAcceptOffer_PastExpiryBeforeSweep(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewRequestHandler(db, cfg)

	consumerID := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	supplierID := testutil.CreateTestProfile(t, db, models.RoleSupplier)
	requestID := testutil.CreateTestRequest(t, db, consumerID)
	offerID := testutil.CreateTestOffer(t, db, requestID, supplierID, models.OfferActive, time.Now().Add(-time.Second))

	req := testutil.MakeRequest("POST", "/api/consumer/offers/"+offerID+"/accept", nil, nil)
	req.SetPathValue("id", offerID)
	req.AddCookie(testutil.SessionCookie(t, cfg, consumerID, models.RoleConsumer))
	w := httptest.NewRecorder()

	handler.AcceptOffer(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
	if s := testutil.OfferStatus(t, db, offerID); s != models.OfferActive {
		t.Errorf("Accept should leave the offer for the sweep, got %s", s)
	}
}

func TestAcceptOffer_RequestAlreadyAccepted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewRequestHandler(db, cfg)

	consumerID := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	supplierID := testutil.CreateTestProfile(t, db, models.RoleSupplier)
	requestID := testutil.CreateTestRequest(t, db, consumerID)
	offerID := testutil.CreateTestOffer(t, db, requestID, supplierID, models.OfferActive, time.Now().Add(time.Hour))

	// a straggler offer left active on a request someone else already closed
	if _, err := db.Exec(`UPDATE water_request SET status = $1 WHERE id = $2`, models.RequestAccepted, requestID); err != nil {
		t.Fatal(err)
	}

	req := testutil.MakeRequest("POST", "/api/consumer/offers/"+offerID+"/accept", nil, nil)
	req.SetPathValue("id", offerID)
	req.AddCookie(testutil.SessionCookie(t, cfg, consumerID, models.RoleConsumer))
	w := httptest.NewRecorder()

	handler.AcceptOffer(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
	if s := testutil.OfferStatus(t, db, offerID); s != models.OfferActive {
		t.Errorf("Offer should be untouched, got %s", s)
	}
	if n := testutil.CountRows(t, db, "notification", "recipient_id = $1", supplierID); n != 0 {
		t.Errorf("Expected no notification, got %d", n)
	}
}
