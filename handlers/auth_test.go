// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/guard"
	"github.com/danielhkuo/aquadrop/models"
	"github.com/danielhkuo/aquadrop/testutil"
)

func sessionFrom(t *testing.T, w *httptest.ResponseRecorder, secret string) auth.Session {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			s, err := auth.ParseSession(c.Value, secret, time.Now())
			if err != nil {
				t.Fatalf("Session cookie did not verify: %v", err)
			}
			return s
		}
	}
	t.Fatal("No session cookie set")
	return auth.Session{}
}

func TestSignup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg, guard.DefaultPolicy())

	tests := []struct {
		name       string
		req        models.SignupRequest
		wantStatus int
		wantHome   string
	}{
		{"consumer", models.SignupRequest{Email: "Ana@Example.com", Password: "longenough", FullName: "Ana", Role: "consumer"}, http.StatusCreated, "/consumer"},
		{"supplier", models.SignupRequest{Email: "truck@example.com", Password: "longenough", Role: "supplier"}, http.StatusCreated, "/supplier"},
		{"role defaults to consumer", models.SignupRequest{Email: "plain@example.com", Password: "longenough"}, http.StatusCreated, "/consumer"},
		{"duplicate email is case-insensitive", models.SignupRequest{Email: "ana@example.com", Password: "longenough"}, http.StatusConflict, ""},
		{"admin cannot self-register", models.SignupRequest{Email: "boss@example.com", Password: "longenough", Role: "admin"}, http.StatusBadRequest, ""},
		{"short password", models.SignupRequest{Email: "short@example.com", Password: "short"}, http.StatusBadRequest, ""},
		{"bad email", models.SignupRequest{Email: "nobody", Password: "longenough"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/auth/signup", tt.req, nil)
			w := httptest.NewRecorder()

			handler.Signup(w, req)

			testutil.AssertStatus(t, w, tt.wantStatus)
			if tt.wantStatus != http.StatusCreated {
				return
			}

			s := sessionFrom(t, w, cfg.SessionSecret)
			var resp models.SessionResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Home != tt.wantHome {
				t.Errorf("Expected home %s, got %s", tt.wantHome, resp.Home)
			}
			if resp.UserID == "" || resp.UserID != s.UserID {
				t.Errorf("Response user %q does not match session user %q", resp.UserID, s.UserID)
			}
		})
	}

	if n := testutil.CountRows(t, db, "profile", ""); n != 3 {
		t.Errorf("Expected 3 profiles, got %d", n)
	}
}

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAuthHandler(db, cfg, guard.DefaultPolicy())
	adminID := testutil.CreateTestProfile(t, db, models.RoleAdmin)

	t.Run("valid credentials", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/api/auth/login", models.LoginRequest{
			Email:    adminID + "@example.com",
			Password: testutil.TestPassword,
		}, nil)
		w := httptest.NewRecorder()

		handler.Login(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		s := sessionFrom(t, w, cfg.SessionSecret)
		if s.UserID != adminID || s.Role != models.RoleAdmin {
			t.Errorf("Unexpected session %+v", s)
		}

		var resp models.SessionResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Home != "/admin" {
			t.Errorf("Expected admin home, got %s", resp.Home)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/api/auth/login", models.LoginRequest{
			Email:    adminID + "@example.com",
			Password: "wrong password",
		}, nil)
		w := httptest.NewRecorder()

		handler.Login(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
		if len(w.Result().Cookies()) != 0 {
			t.Error("Expected no cookie on failed login")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/api/auth/login", models.LoginRequest{
			Email:    "ghost@example.com",
			Password: testutil.TestPassword,
		}, nil)
		w := httptest.NewRecorder()

		handler.Login(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})
}

func TestLogout(t *testing.T) {
	handler := NewAuthHandler(nil, testutil.GetTestConfig(), guard.DefaultPolicy())
	w := httptest.NewRecorder()

	handler.Logout(w, testutil.MakeRequest("POST", "/api/auth/logout", nil, nil))

	testutil.AssertStatus(t, w, http.StatusNoContent)
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.SessionCookie || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected the session cookie to be cleared, got %+v", cookies)
	}
}

func TestLoginPages(t *testing.T) {
	handler := NewAuthHandler(nil, testutil.GetTestConfig(), guard.DefaultPolicy())

	tests := []struct {
		name         string
		path         string
		serve        http.HandlerFunc
		wantPage     string
		wantReturnTo string
	}{
		{"login keeps returnTo", "/login?returnTo=%2Fconsumer%2Frequests", handler.LoginPage, "login", "/consumer/requests"},
		{"admin login", "/admin/login?returnTo=%2Fadmin", handler.AdminLoginPage, "admin_login", "/admin"},
		{"absolute URL dropped", "/login?returnTo=https%3A%2F%2Fevil.example", handler.LoginPage, "login", ""},
		{"protocol-relative dropped", "/login?returnTo=%2F%2Fevil.example", handler.LoginPage, "login", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.serve(w, testutil.MakeRequest("GET", tt.path, nil, nil))

			testutil.AssertStatus(t, w, http.StatusOK)
			var entry models.LoginEntry
			testutil.AssertJSON(t, w, &entry)
			if entry.Page != tt.wantPage {
				t.Errorf("Expected page %s, got %s", tt.wantPage, entry.Page)
			}
			if entry.ReturnTo != tt.wantReturnTo {
				t.Errorf("Expected returnTo %q, got %q", tt.wantReturnTo, entry.ReturnTo)
			}
		})
	}
}
