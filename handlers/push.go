// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
)

type PushHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPushHandler(db *sql.DB, cfg cliparse.Config) *PushHandler {
	return &PushHandler{db: db, cfg: cfg}
}

// Subscribe handles POST /api/push/subscribe
// Registers a push endpoint for the caller (or refreshes an existing one).
// Delivery is handled elsewhere; this only records where to deliver.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r, h.cfg)
	if !ok {
		return
	}

	var req models.PushSubscribeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !isValidPlatform(req.Platform) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "platform must be one of: web, ios, android")
		return
	}
	if u, err := url.Parse(req.Endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "endpoint must be an https URL")
		return
	}

	now := time.Now().UTC()

	// Check if endpoint already exists
	var existingID string
	var createdAt time.Time
	err := h.db.QueryRow(`
		SELECT id, created_at FROM push_subscription WHERE endpoint = $1
	`, req.Endpoint).Scan(&existingID, &createdAt)

	if err == nil {
		// Endpoint exists; it follows whoever registered it last
		_, err = h.db.Exec(`
			UPDATE push_subscription SET profile_id = $1, platform = $2, last_seen_at = $3 WHERE id = $4
		`, s.UserID, req.Platform, now, existingID)
		if err != nil {
			slog.Error("failed to refresh push subscription", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		slog.Info("push subscription refreshed", "subscription_id", existingID)
		middleware.JSONResponse(w, http.StatusOK, models.PushSubscription{
			ID:         existingID,
			Endpoint:   req.Endpoint,
			Platform:   req.Platform,
			CreatedAt:  createdAt.UTC(),
			LastSeenAt: now,
		})
		return
	}

	if err != sql.ErrNoRows {
		slog.Error("failed to query push subscription", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	subID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate subscription ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO push_subscription (id, profile_id, endpoint, platform, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, subID, s.UserID, req.Endpoint, req.Platform, now, now)
	if err != nil {
		slog.Error("failed to insert push subscription", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}

	slog.Info("push subscription created", "subscription_id", subID, "platform", req.Platform)

	middleware.JSONResponse(w, http.StatusCreated, models.PushSubscription{
		ID:         subID,
		Endpoint:   req.Endpoint,
		Platform:   req.Platform,
		CreatedAt:  now,
		LastSeenAt: now,
	})
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r, h.cfg)
	if !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, endpoint, platform, created_at, last_seen_at
		FROM push_subscription
		WHERE profile_id = $1
		ORDER BY last_seen_at DESC, id
	`, s.UserID)
	if err != nil {
		slog.Error("failed to query push subscriptions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	subs := []models.PushSubscription{}
	for rows.Next() {
		var p models.PushSubscription
		if err := rows.Scan(&p.ID, &p.Endpoint, &p.Platform, &p.CreatedAt, &p.LastSeenAt); err != nil {
			slog.Error("failed to scan push subscription", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		subs = append(subs, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read push subscriptions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, subs)
}

func isValidPlatform(platform string) bool {
	switch platform {
	case models.PlatformWeb, models.PlatformIOS, models.PlatformAndroid:
		return true
	}
	return false
}
