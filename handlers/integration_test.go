// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/aquadrop/expiry"
	"github.com/danielhkuo/aquadrop/guard"
	"github.com/danielhkuo/aquadrop/models"
	"github.com/danielhkuo/aquadrop/store"
	"github.com/danielhkuo/aquadrop/testutil"
)

// TestFullDeliveryWorkflow tests the complete end-to-end workflow:
// 1. Consumer and two suppliers sign up
// 2. Consumer posts a water request
// 3. Both suppliers offer; one offer is short-lived
// 4. The sweep expires the short-lived offer and notifies its supplier
// 5. Consumer accepts the remaining offer
// 6. Each party sees the right notifications
func TestFullDeliveryWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	authHandler := NewAuthHandler(db, cfg, guard.DefaultPolicy())
	requestHandler := NewRequestHandler(db, cfg)
	offerHandler := NewOfferHandler(db, cfg)
	notificationHandler := NewNotificationHandler(db, cfg)

	// Step 1: Sign up
	signup := func(email, role string) *http.Cookie {
		req := testutil.MakeRequest("POST", "/api/auth/signup", models.SignupRequest{
			Email: email, Password: "longenough", FullName: strings.Split(email, "@")[0], Role: role,
		}, nil)
		w := httptest.NewRecorder()
		authHandler.Signup(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 1 - Signup %s failed: %d - %s", email, w.Code, w.Body.String())
		}
		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("Step 1 - Signup %s set %d cookies", email, len(cookies))
		}
		return cookies[0]
	}
	consumer := signup("lena@example.com", models.RoleConsumer)
	quick := signup("quick@example.com", models.RoleSupplier)
	steady := signup("steady@example.com", models.RoleSupplier)

	// Step 2: Post a request
	req := testutil.MakeRequest("POST", "/api/consumer/requests", models.CreateWaterRequest{
		VolumeLiters: 2000, DeliveryAddress: "7 Dry Creek Rd",
	}, nil)
	req.AddCookie(consumer)
	w := httptest.NewRecorder()
	requestHandler.CreateRequest(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 2 - Create request failed: %d - %s", w.Code, w.Body.String())
	}
	_, created := decodeSubmission(t, w)
	t.Logf("Step 2 - Created request: %s", created.RequestID)

	// Step 3: Offers
	offer := func(cookie *http.Cookie, price, minutes int) models.CreateOfferResponse {
		req := testutil.MakeRequest("POST", "/api/supplier/offers", models.CreateOfferRequest{
			RequestID: created.RequestID, PriceCents: price, ValidForMinutes: minutes,
		}, nil)
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		offerHandler.CreateOffer(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 3 - Create offer failed: %d - %s", w.Code, w.Body.String())
		}
		var resp models.CreateOfferResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}
	short := offer(quick, 9000, 5)
	long := offer(steady, 11000, 0)

	// Step 4: Sweep ten minutes later
	sweeper := expiry.NewSweeper(store.NewOfferStore(db), store.NewNotificationStore(db))
	res, err := sweeper.Sweep(t.Context(), time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Step 4 - Sweep failed: %v", err)
	}
	if res.ExpiredCount != 1 {
		t.Fatalf("Step 4 - Expected 1 expired offer, got %d", res.ExpiredCount)
	}
	if s := testutil.OfferStatus(t, db, short.OfferID); s != models.OfferExpired {
		t.Errorf("Step 4 - Short offer should be expired, got %s", s)
	}

	// Step 5: Accept the surviving offer
	req = testutil.MakeRequest("POST", "/api/consumer/offers/"+long.OfferID+"/accept", nil, nil)
	req.SetPathValue("id", long.OfferID)
	req.AddCookie(consumer)
	w = httptest.NewRecorder()
	requestHandler.AcceptOffer(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 5 - Accept failed: %d - %s", w.Code, w.Body.String())
	}
	var accepted models.AcceptOfferResponse
	testutil.AssertJSON(t, w, &accepted)
	if accepted.Rejected != 0 {
		t.Errorf("Step 5 - Expired offer must not be rejected, got %d rejections", accepted.Rejected)
	}

	// Step 6: Notifications
	inbox := func(cookie *http.Cookie) []models.Notification {
		req := testutil.MakeRequest("GET", "/api/notifications", nil, nil)
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		notificationHandler.List(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var list []models.Notification
		testutil.AssertJSON(t, w, &list)
		return list
	}

	kinds := func(list []models.Notification) map[string]int {
		m := map[string]int{}
		for _, n := range list {
			m[n.Kind]++
		}
		return m
	}

	if k := kinds(inbox(consumer)); k[models.KindOfferReceived] != 2 || len(k) != 1 {
		t.Errorf("Step 6 - Consumer inbox: %v", k)
	}
	quickInbox := inbox(quick)
	if k := kinds(quickInbox); k[models.KindOfferExpired] != 1 || len(k) != 1 {
		t.Errorf("Step 6 - Expired supplier inbox: %v", k)
	} else if !strings.Contains(quickInbox[0].Message, "$90.00") || !strings.Contains(quickInbox[0].Message, "7 Dry Creek Rd") {
		t.Errorf("Step 6 - Unexpected expiry message %q", quickInbox[0].Message)
	}
	if k := kinds(inbox(steady)); k[models.KindOfferAccepted] != 1 || len(k) != 1 {
		t.Errorf("Step 6 - Accepted supplier inbox: %v", k)
	}
}

// TestOfferAfterAcceptance verifies a request stops taking offers once accepted
func TestOfferAfterAcceptance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	requestHandler := NewRequestHandler(db, cfg)
	offerHandler := NewOfferHandler(db, cfg)

	consumerID := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	supplierID := testutil.CreateTestProfile(t, db, models.RoleSupplier)
	requestID := testutil.CreateTestRequest(t, db, consumerID)
	offerID := testutil.CreateTestOffer(t, db, requestID, supplierID, models.OfferActive, time.Now().Add(time.Hour))

	req := testutil.MakeRequest("POST", "/api/consumer/offers/"+offerID+"/accept", nil, nil)
	req.SetPathValue("id", offerID)
	req.AddCookie(testutil.SessionCookie(t, cfg, consumerID, models.RoleConsumer))
	w := httptest.NewRecorder()
	requestHandler.AcceptOffer(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("POST", "/api/supplier/offers", models.CreateOfferRequest{RequestID: requestID, PriceCents: 500}, nil)
	req.AddCookie(testutil.SessionCookie(t, cfg, supplierID, models.RoleSupplier))
	w = httptest.NewRecorder()
	offerHandler.CreateOffer(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)
}
