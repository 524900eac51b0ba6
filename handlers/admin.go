// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
)

type AdminHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAdminHandler(db *sql.DB, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.cfg, models.RoleAdmin); !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, email, full_name, role, created_at
		FROM profile
		ORDER BY created_at, id
	`)
	if err != nil {
		slog.Error("failed to query profiles", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	users := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt); err != nil {
			slog.Error("failed to scan profile", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		users = append(users, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read profiles", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, users)
}

// ChangeRole handles POST /api/admin/users/{id}/role
// The new role applies to page checks at once and to the route guard at the
// user's next login.
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	s, ok := requireRole(w, r, h.cfg, models.RoleAdmin)
	if !ok {
		return
	}
	userID := r.PathValue("id")

	var req models.ChangeRoleRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleSupplier, models.RoleConsumer:
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "role must be one of: admin, supplier, consumer")
		return
	}
	if userID == s.UserID && req.Role != models.RoleAdmin {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Admins cannot remove their own admin role")
		return
	}

	res, err := h.db.Exec(`UPDATE profile SET role = $1 WHERE id = $2`, req.Role, userID)
	if err != nil {
		slog.Error("failed to update role", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}

	slog.Info("role changed", "user_id", userID, "role", req.Role, "by", s.UserID)
	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"user_id": userID,
		"role":    req.Role,
	})
}

// ListOffers handles GET /api/admin/offers?status=
func (h *AdminHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.cfg, models.RoleAdmin); !ok {
		return
	}

	status := r.URL.Query().Get("status")
	var (
		rows *sql.Rows
		err  error
	)
	switch status {
	case "":
		rows, err = h.db.Query(`
			SELECT id, request_id, supplier_id, price_cents, status, expires_at, created_at
			FROM offer ORDER BY created_at DESC, id
		`)
	case models.OfferActive, models.OfferAccepted, models.OfferRejected, models.OfferExpired:
		rows, err = h.db.Query(`
			SELECT id, request_id, supplier_id, price_cents, status, expires_at, created_at
			FROM offer WHERE status = $1 ORDER BY created_at DESC, id
		`, status)
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be one of: active, accepted, rejected, expired")
		return
	}
	if err != nil {
		slog.Error("failed to query offers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	offers, err := scanOffers(rows)
	if err != nil {
		slog.Error("failed to scan offers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, offers)
}
