// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/store"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	store *store.NotificationStore
}

func NewNotificationHandler(db *sql.DB, cfg cliparse.Config) *NotificationHandler {
	return &NotificationHandler{db: db, cfg: cfg, store: store.NewNotificationStore(db)}
}

// List handles GET /api/notifications?limit=
// Returns the caller's notifications, newest first
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r, h.cfg)
	if !ok {
		return
	}

	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	list, err := h.store.ListForRecipient(r.Context(), s.UserID, limit)
	if err != nil {
		slog.Error("failed to list notifications", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, list)
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r, h.cfg)
	if !ok {
		return
	}

	found, err := h.store.MarkRead(r.Context(), r.PathValue("id"), s.UserID, time.Now())
	if err != nil {
		slog.Error("failed to mark notification read", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "Notification not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
