// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
	"github.com/danielhkuo/aquadrop/store"
)

// SessionTTL is how long a login stays valid
const SessionTTL = 7 * 24 * time.Hour

// requireSession writes a 401 and returns false when the caller has no valid session
func requireSession(w http.ResponseWriter, r *http.Request, cfg cliparse.Config) (auth.Session, bool) {
	s, err := middleware.SessionFromRequest(r, cfg.SessionSecret)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return auth.Session{}, false
	}
	return s, true
}

// requireRole is requireSession plus a 403 when the session role differs.
// The route guard normally stops these requests first.
func requireRole(w http.ResponseWriter, r *http.Request, cfg cliparse.Config, role string) (auth.Session, bool) {
	s, ok := requireSession(w, r, cfg)
	if !ok {
		return s, false
	}
	if s.Role != role {
		middleware.ErrorResponse(w, http.StatusForbidden, "This action requires the "+role+" role")
		return s, false
	}
	return s, true
}

// notify writes a single notification through q
func notify(ctx context.Context, q store.Querier, recipientID, kind, message, offerID, requestID string, now time.Time) error {
	id, err := auth.GenerateID(16)
	if err != nil {
		return err
	}
	n := models.Notification{
		ID:          id,
		RecipientID: recipientID,
		Kind:        kind,
		Message:     message,
		CreatedAt:   now,
	}
	if offerID != "" {
		n.OfferID = &offerID
	}
	if requestID != "" {
		n.RequestID = &requestID
	}
	return store.NewNotificationStore(q).InsertNotifications(ctx, []models.Notification{n})
}
