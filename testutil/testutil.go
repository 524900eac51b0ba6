// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/db"
)

// TestPassword is the plain-text password of every profile CreateTestProfile makes
const TestPassword = "correct horse battery"

// SetupTestDB creates a fresh in-memory SQLite database with the full schema.
// The pool is capped at one connection so every query sees the same database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   ":memory:",
		DatabaseType:  db.SQLite,
		SessionSecret: "test-session-secret",
		CronSecret:    "test-cron-secret",
		OfferTTL:      cliparse.DefaultOfferTTL,
	}
}

// CreateTestProfile creates a profile with the given role and returns its ID.
// The email is derived from the ID and the password is TestPassword.
func CreateTestProfile(t *testing.T, conn *sql.DB, role string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	_, err = conn.Exec(`
		INSERT INTO profile (id, email, password_hash, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, id+"@example.com", string(hash), "Test "+role, role, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	return id
}

// CreateTestRequest creates a pending water request for 1500 L and returns its ID
func CreateTestRequest(t *testing.T, conn *sql.DB, consumerID string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO water_request (id, consumer_id, volume_liters, delivery_address, status, created_at)
		VALUES ($1, $2, 1500, '12 Well Lane', 'pending', $3)
	`, id, consumerID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test request: %v", err)
	}

	return id
}

// CreateTestOffer creates an offer of 125.50 with the given status and expiry
func CreateTestOffer(t *testing.T, conn *sql.DB, requestID, supplierID, status string, expiresAt time.Time) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO offer (id, request_id, supplier_id, price_cents, status, expires_at, created_at)
		VALUES ($1, $2, $3, 12550, $4, $5, $6)
	`, id, requestID, supplierID, status, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test offer: %v", err)
	}

	return id
}

// OfferStatus reads an offer's current status
func OfferStatus(t *testing.T, conn *sql.DB, offerID string) string {
	t.Helper()

	var status string
	if err := conn.QueryRow(`SELECT status FROM offer WHERE id = $1`, offerID).Scan(&status); err != nil {
		t.Fatalf("Failed to read offer status: %v", err)
	}
	return status
}

// CountRows returns the number of rows in a table matching an optional where clause
func CountRows(t *testing.T, conn *sql.DB, table, where string, args ...any) int {
	t.Helper()

	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	if err := conn.QueryRow(q, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// SessionCookie returns a valid session cookie for the user and role
func SessionCookie(t *testing.T, cfg cliparse.Config, userID, role string) *http.Cookie {
	t.Helper()

	token, err := auth.IssueSession(auth.Session{
		UserID:    userID,
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}, cfg.SessionSecret)
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
