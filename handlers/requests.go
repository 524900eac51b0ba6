// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/expiry"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
)

// Error codes in the submission envelope
const (
	CodeInvalidJSON    = "invalid_json"
	CodeUnauthorized   = "unauthorized"
	CodeInvalidVolume  = "invalid_volume"
	CodeMissingAddress = "missing_address"
	CodeServerError    = "server_error"
)

const maxVolumeLiters = 1_000_000

type RequestHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewRequestHandler(db *sql.DB, cfg cliparse.Config) *RequestHandler {
	return &RequestHandler{db: db, cfg: cfg}
}

func submissionError(w http.ResponseWriter, status int, code, message string) {
	middleware.JSONResponse(w, status, models.SubmissionResponse{
		Success:   false,
		ErrorCode: code,
		Message:   message,
	})
}

func submissionOK(w http.ResponseWriter, status int, data models.CreatedRequestData) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode submission data", "error", err)
		submissionError(w, http.StatusInternalServerError, CodeServerError, "Failed to encode response")
		return
	}
	middleware.JSONResponse(w, status, models.SubmissionResponse{Success: true, Data: raw})
}

// CreateRequest handles POST /api/consumer/requests
// This is the endpoint offline clients replay their queue against, so every
// response uses the {success, data, error_code} envelope. A repeated
// client_ref returns the request created the first time.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	s, err := middleware.SessionFromRequest(r, h.cfg.SessionSecret)
	if err != nil {
		submissionError(w, http.StatusUnauthorized, CodeUnauthorized, "Login required")
		return
	}

	var req models.CreateWaterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		submissionError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON")
		return
	}

	if req.VolumeLiters <= 0 || req.VolumeLiters > maxVolumeLiters {
		submissionError(w, http.StatusBadRequest, CodeInvalidVolume, "volume_liters must be between 1 and 1,000,000")
		return
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if address == "" {
		submissionError(w, http.StatusBadRequest, CodeMissingAddress, "delivery_address is required")
		return
	}

	if req.ClientRef != "" {
		if id, ok := h.findByClientRef(s.UserID, req.ClientRef); ok {
			slog.Info("duplicate submission", "request_id", id, "client_ref", req.ClientRef)
			submissionOK(w, http.StatusOK, models.CreatedRequestData{RequestID: id, Duplicate: true})
			return
		}
	}

	requestID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate request ID", "error", err)
		submissionError(w, http.StatusInternalServerError, CodeServerError, "Failed to create request")
		return
	}

	var preferred *time.Time
	if req.PreferredDate != nil {
		p := req.PreferredDate.UTC()
		preferred = &p
	}
	var clientRef *string
	if req.ClientRef != "" {
		clientRef = &req.ClientRef
	}

	_, err = h.db.Exec(`
		INSERT INTO water_request (id, consumer_id, volume_liters, delivery_address, preferred_date, notes, status, client_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, requestID, s.UserID, req.VolumeLiters, address, preferred, strings.TrimSpace(req.Notes), models.RequestPending, clientRef, time.Now().UTC())
	if err != nil {
		// A concurrent replay with the same client_ref may have won the insert
		if req.ClientRef != "" {
			if id, ok := h.findByClientRef(s.UserID, req.ClientRef); ok {
				submissionOK(w, http.StatusOK, models.CreatedRequestData{RequestID: id, Duplicate: true})
				return
			}
		}
		slog.Error("failed to insert water request", "error", err)
		submissionError(w, http.StatusInternalServerError, CodeServerError, "Failed to create request")
		return
	}

	slog.Info("water request created", "request_id", requestID, "consumer_id", s.UserID, "volume_liters", req.VolumeLiters)
	submissionOK(w, http.StatusCreated, models.CreatedRequestData{RequestID: requestID})
}

func (h *RequestHandler) findByClientRef(consumerID, clientRef string) (string, bool) {
	var id string
	err := h.db.QueryRow(`
		SELECT id FROM water_request WHERE consumer_id = $1 AND client_ref = $2
	`, consumerID, clientRef).Scan(&id)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Error("failed to look up client_ref", "error", err)
		}
		return "", false
	}
	return id, true
}

// ListRequests handles GET /api/consumer/requests
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r, h.cfg)
	if !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, consumer_id, volume_liters, delivery_address, preferred_date, notes, status, created_at
		FROM water_request
		WHERE consumer_id = $1
		ORDER BY created_at DESC, id
	`, s.UserID)
	if err != nil {
		slog.Error("failed to query requests", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	requests, err := scanRequests(rows)
	if err != nil {
		slog.Error("failed to scan requests", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, requests)
}

func scanRequests(rows *sql.Rows) ([]models.WaterRequest, error) {
	out := []models.WaterRequest{}
	for rows.Next() {
		var (
			wr        models.WaterRequest
			preferred sql.NullTime
		)
		if err := rows.Scan(&wr.ID, &wr.ConsumerID, &wr.VolumeLiters, &wr.DeliveryAddress, &preferred, &wr.Notes, &wr.Status, &wr.CreatedAt); err != nil {
			return nil, err
		}
		if preferred.Valid {
			wr.PreferredDate = &preferred.Time
		}
		out = append(out, wr)
	}
	return out, rows.Err()
}

// AcceptOffer handles POST /api/consumer/offers/{id}/accept
// Accepts an active, unexpired offer on one of the caller's pending requests.
// Every other active offer on the request is rejected in the same transaction
// and the winning supplier is notified.
func (h *RequestHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r, h.cfg)
	if !ok {
		return
	}
	offerID := r.PathValue("id")
	now := time.Now().UTC()

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var (
		requestID, supplierID, offerStatus string
		consumerID, requestStatus          string
		priceCents, volume                 int
		expiresAt                          time.Time
	)
	err = tx.QueryRow(`
		SELECT o.request_id, o.supplier_id, o.status, o.price_cents, o.expires_at,
		       r.consumer_id, r.status, r.volume_liters
		FROM offer o
		JOIN water_request r ON r.id = o.request_id
		WHERE o.id = $1
	`, offerID).Scan(&requestID, &supplierID, &offerStatus, &priceCents, &expiresAt, &consumerID, &requestStatus, &volume)

	if err == sql.ErrNoRows || (err == nil && consumerID != s.UserID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Offer not found")
		return
	}
	if err != nil {
		slog.Error("failed to query offer", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// An offer past its expiry is treated as expired even before the sweep runs
	if offerStatus != models.OfferActive || !now.Before(expiresAt) {
		middleware.ErrorResponse(w, http.StatusConflict, "Offer is no longer active")
		return
	}
	if requestStatus != models.RequestPending {
		middleware.ErrorResponse(w, http.StatusConflict, "Request is not pending")
		return
	}

	// The request row is locked first so concurrent accepts on one request
	// queue behind each other instead of deadlocking on the offer rows.
	res, err := tx.Exec(`
		UPDATE water_request SET status = $1 WHERE id = $2 AND status = $3
	`, models.RequestAccepted, requestID, models.RequestPending)
	if err != nil {
		slog.Error("failed to update request status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n != 1 {
		middleware.ErrorResponse(w, http.StatusConflict, "Request is not pending")
		return
	}

	res, err = tx.Exec(`
		UPDATE offer SET status = $1 WHERE id = $2 AND status = $3
	`, models.OfferAccepted, offerID, models.OfferActive)
	if err != nil {
		slog.Error("failed to accept offer", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n != 1 {
		middleware.ErrorResponse(w, http.StatusConflict, "Offer is no longer active")
		return
	}

	res, err = tx.Exec(`
		UPDATE offer SET status = $1 WHERE request_id = $2 AND id <> $3 AND status = $4
	`, models.OfferRejected, requestID, offerID, models.OfferActive)
	if err != nil {
		slog.Error("failed to reject sibling offers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	rejected, _ := res.RowsAffected()

	msg := fmt.Sprintf("Your offer of %s for %s L was accepted.", expiry.FormatPrice(priceCents), humanize.Comma(int64(volume)))
	if err := notify(r.Context(), tx, supplierID, models.KindOfferAccepted, msg, offerID, requestID, now); err != nil {
		slog.Error("failed to notify supplier", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("offer accepted", "offer_id", offerID, "request_id", requestID, "rejected", rejected)
	middleware.JSONResponse(w, http.StatusOK, models.AcceptOfferResponse{
		OfferID:   offerID,
		RequestID: requestID,
		Rejected:  int(rejected),
	})
}
