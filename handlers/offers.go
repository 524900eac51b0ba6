// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/expiry"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
)

// Longest lifetime a supplier may ask for with valid_for_minutes
const maxOfferValidity = 30 * 24 * time.Hour

type OfferHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewOfferHandler(db *sql.DB, cfg cliparse.Config) *OfferHandler {
	return &OfferHandler{db: db, cfg: cfg}
}

// ListOpenRequests handles GET /api/supplier/requests
// Returns every pending request, oldest first
func (h *OfferHandler) ListOpenRequests(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.cfg, models.RoleSupplier); !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, consumer_id, volume_liters, delivery_address, preferred_date, notes, status, created_at
		FROM water_request
		WHERE status = $1
		ORDER BY created_at, id
	`, models.RequestPending)
	if err != nil {
		slog.Error("failed to query open requests", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	requests, err := scanRequests(rows)
	if err != nil {
		slog.Error("failed to scan open requests", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, requests)
}

// CreateOffer handles POST /api/supplier/offers
// The offer expires after valid_for_minutes, or OFFER_TTL when omitted.
// The consumer who owns the request is notified.
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	s, ok := requireRole(w, r, h.cfg, models.RoleSupplier)
	if !ok {
		return
	}

	var req models.CreateOfferRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.RequestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "request_id is required")
		return
	}
	if req.PriceCents <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "price_cents must be positive")
		return
	}

	ttl := h.cfg.OfferTTL
	if req.ValidForMinutes < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "valid_for_minutes must not be negative")
		return
	}
	if req.ValidForMinutes > 0 {
		ttl = time.Duration(req.ValidForMinutes) * time.Minute
		if ttl > maxOfferValidity {
			middleware.ErrorResponse(w, http.StatusBadRequest, "valid_for_minutes is too large")
			return
		}
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var consumerID, status string
	var volume int
	err = tx.QueryRow(`
		SELECT consumer_id, status, volume_liters FROM water_request WHERE id = $1
	`, req.RequestID).Scan(&consumerID, &status, &volume)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Request not found")
		return
	}
	if err != nil {
		slog.Error("failed to query request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if status != models.RequestPending {
		middleware.ErrorResponse(w, http.StatusConflict, "Request is not accepting offers")
		return
	}

	offerID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate offer ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create offer")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO offer (id, request_id, supplier_id, price_cents, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, offerID, req.RequestID, s.UserID, req.PriceCents, models.OfferActive, expiresAt, now)
	if err != nil {
		slog.Error("failed to insert offer", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create offer")
		return
	}

	msg := fmt.Sprintf("New offer of %s for your %s L request, valid until %s.",
		expiry.FormatPrice(req.PriceCents), humanize.Comma(int64(volume)), expiresAt.Format(time.RFC1123))
	if err := notify(r.Context(), tx, consumerID, models.KindOfferReceived, msg, offerID, req.RequestID, now); err != nil {
		slog.Error("failed to notify consumer", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create offer")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("offer created", "offer_id", offerID, "request_id", req.RequestID, "expires_in", humanize.RelTime(now, expiresAt, "ago", "from now"))

	middleware.JSONResponse(w, http.StatusCreated, models.CreateOfferResponse{
		OfferID:   offerID,
		ExpiresAt: expiresAt,
	})
}

// ListMyOffers handles GET /api/supplier/offers
func (h *OfferHandler) ListMyOffers(w http.ResponseWriter, r *http.Request) {
	s, ok := requireRole(w, r, h.cfg, models.RoleSupplier)
	if !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, request_id, supplier_id, price_cents, status, expires_at, created_at
		FROM offer
		WHERE supplier_id = $1
		ORDER BY created_at DESC, id
	`, s.UserID)
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

func scanOffers(rows *sql.Rows) ([]models.Offer, error) {
	out := []models.Offer{}
	for rows.Next() {
		var o models.Offer
		if err := rows.Scan(&o.ID, &o.RequestID, &o.SupplierID, &o.PriceCents, &o.Status, &o.ExpiresAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
