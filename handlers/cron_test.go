// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/aquadrop/expiry"
	"github.com/danielhkuo/aquadrop/models"
	"github.com/danielhkuo/aquadrop/store"
	"github.com/danielhkuo/aquadrop/testutil"
)

type failingExpirer struct{ calls int }

func (f *failingExpirer) ExpireActiveOffers(context.Context, time.Time) ([]models.ExpiredOffer, error) {
	f.calls++
	return nil, errors.New("connection reset")
}

func cronRequest(auth string) *http.Request {
	req := testutil.MakeRequest("GET", "/api/cron/expire-offers", nil, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func TestCronExpireOffers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	sweeper := expiry.NewSweeper(store.NewOfferStore(db), store.NewNotificationStore(db))
	handler := NewCronHandler(sweeper, cfg)

	consumerID := testutil.CreateTestProfile(t, db, models.RoleConsumer)
	supplierID := testutil.CreateTestProfile(t, db, models.RoleSupplier)
	requestID := testutil.CreateTestRequest(t, db, consumerID)
	overdue := testutil.CreateTestOffer(t, db, requestID, supplierID, models.OfferActive, time.Now().Add(-time.Minute))
	fresh := testutil.CreateTestOffer(t, db, requestID, supplierID, models.OfferActive, time.Now().Add(time.Hour))

	t.Run("rejected calls do no work", func(t *testing.T) {
		for _, header := range []string{"", "Bearer wrong", "Basic " + cfg.CronSecret, cfg.CronSecret} {
			w := httptest.NewRecorder()
			handler.ExpireOffers(w, cronRequest(header))

			testutil.AssertStatus(t, w, http.StatusUnauthorized)
			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Error != "Unauthorized" {
				t.Errorf("Expected Unauthorized, got %q", resp.Error)
			}
		}
		if s := testutil.OfferStatus(t, db, overdue); s != models.OfferActive {
			t.Errorf("Unauthorized call changed offer to %s", s)
		}
	})

	t.Run("sweep", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ExpireOffers(w, cronRequest("Bearer "+cfg.CronSecret))

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.SweepResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.ExpiredCount != 1 {
			t.Errorf("Expected 1 expired offer, got %d", resp.ExpiredCount)
		}
		if s := testutil.OfferStatus(t, db, overdue); s != models.OfferExpired {
			t.Errorf("Expected overdue offer expired, got %s", s)
		}
		if s := testutil.OfferStatus(t, db, fresh); s != models.OfferActive {
			t.Errorf("Expected fresh offer active, got %s", s)
		}
	})

	t.Run("repeat sweep is a no-op", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ExpireOffers(w, cronRequest("Bearer "+cfg.CronSecret))

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.SweepResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.ExpiredCount != 0 {
			t.Errorf("Expected 0 expired offers, got %d", resp.ExpiredCount)
		}
		if n := testutil.CountRows(t, db, "notification", "recipient_id = $1 AND kind = $2", supplierID, models.KindOfferExpired); n != 1 {
			t.Errorf("Expected exactly 1 expiry notification, got %d", n)
		}
	})
}

func TestCronExpireOffers_EmptySecret(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.CronSecret = ""
	expirer := &failingExpirer{}
	handler := NewCronHandler(expiry.NewSweeper(expirer, nil), cfg)

	for _, header := range []string{"", "Bearer ", "Bearer"} {
		w := httptest.NewRecorder()
		handler.ExpireOffers(w, cronRequest(header))
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	}
	if expirer.calls != 0 {
		t.Errorf("Expected no sweep, got %d calls", expirer.calls)
	}
}

func TestCronExpireOffers_StoreFailure(t *testing.T) {
	cfg := testutil.GetTestConfig()
	expirer := &failingExpirer{}
	handler := NewCronHandler(expiry.NewSweeper(expirer, nil), cfg)

	w := httptest.NewRecorder()
	handler.ExpireOffers(w, cronRequest("Bearer "+cfg.CronSecret))

	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	var resp models.SweepErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Error == "" {
		t.Error("Expected an error message")
	}
	if resp.DurationMS < 0 {
		t.Errorf("Unexpected duration %d", resp.DurationMS)
	}
}
