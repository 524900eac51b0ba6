// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/guard"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
	"github.com/danielhkuo/aquadrop/store"
)

// PageHandler serves the role dashboards. Each page repeats the route check
// with the role read from the profile table, so a role changed since login
// takes effect here before the session is renewed.
type PageHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	policy *guard.Policy
}

func NewPageHandler(db *sql.DB, cfg cliparse.Config, policy *guard.Policy) *PageHandler {
	return &PageHandler{db: db, cfg: cfg, policy: policy}
}

// Consumer handles GET /consumer
func (h *PageHandler) Consumer(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(d *models.Dashboard) error {
		return h.db.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM water_request WHERE consumer_id = $1 AND status = $2
		`, d.UserID, models.RequestPending).Scan(&d.OpenRequests)
	})
}

// Supplier handles GET /supplier
func (h *PageHandler) Supplier(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(d *models.Dashboard) error {
		err := h.db.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM water_request WHERE status = $1
		`, models.RequestPending).Scan(&d.OpenRequests)
		if err != nil {
			return err
		}
		return h.countOffers(r, d, "supplier_id = $1 AND ", d.UserID)
	})
}

// Admin handles GET /admin
func (h *PageHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(d *models.Dashboard) error {
		err := h.db.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM water_request WHERE status = $1
		`, models.RequestPending).Scan(&d.OpenRequests)
		if err != nil {
			return err
		}
		return h.countOffers(r, d, "")
	})
}

// countOffers fills the offer counters. where is a fixed clause prefix whose
// placeholders are bound to args; the status placeholder follows them.
func (h *PageHandler) countOffers(r *http.Request, d *models.Dashboard, where string, args ...any) error {
	q := `SELECT COUNT(*) FROM offer WHERE ` + where + `status = $` + strconv.Itoa(len(args)+1)

	active := append(append([]any{}, args...), models.OfferActive)
	if err := h.db.QueryRowContext(r.Context(), q, active...).Scan(&d.ActiveOffers); err != nil {
		return err
	}
	expired := append(append([]any{}, args...), models.OfferExpired)
	return h.db.QueryRowContext(r.Context(), q, expired...).Scan(&d.ExpiredOffers)
}

// render runs the page guard, then fills the dashboard
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, fill func(*models.Dashboard) error) {
	role := guard.Anonymous
	var d models.Dashboard

	if s, err := middleware.SessionFromRequest(r, h.cfg.SessionSecret); err == nil {
		var stored string
		err := h.db.QueryRowContext(r.Context(), `
			SELECT full_name, role FROM profile WHERE id = $1
		`, s.UserID).Scan(&d.FullName, &stored)
		switch {
		case err == nil:
			role = guard.ParseRole(stored)
			d.UserID = s.UserID
			d.Role = stored
		case err == sql.ErrNoRows:
			// deleted profile: treat as logged out
		default:
			slog.Error("failed to load profile", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
	}

	decision := h.policy.Authorize(r.URL.Path, role)
	switch decision.Kind {
	case guard.RedirectLogin:
		http.Redirect(w, r, guard.LoginRedirect(decision.Target, r.URL.Path), http.StatusTemporaryRedirect)
		return
	case guard.RedirectHome:
		http.Redirect(w, r, decision.Target, http.StatusTemporaryRedirect)
		return
	}

	if d.UserID != "" {
		unread, err := store.NewNotificationStore(h.db).CountUnread(r.Context(), d.UserID)
		if err != nil {
			slog.Error("failed to count notifications", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		d.Unread = unread
	}

	if err := fill(&d); err != nil {
		slog.Error("failed to build dashboard", "path", r.URL.Path, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	middleware.JSONResponse(w, http.StatusOK, d)
}
