// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/aquadrop/models"
)

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type OfferStore struct {
	db *sql.DB
}

func NewOfferStore(db *sql.DB) *OfferStore {
	return &OfferStore{db: db}
}

// ExpireActiveOffers flips every active offer whose expires_at is strictly
// before now to expired and returns what it changed. The update is a single
// conditional statement, so concurrent callers partition the offers between
// them and an offer is returned by at most one call.
func (s *OfferStore) ExpireActiveOffers(ctx context.Context, now time.Time) ([]models.ExpiredOffer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		UPDATE offer SET status = $1
		WHERE status = $2 AND expires_at < $3
		RETURNING id, supplier_id, request_id, price_cents
	`, models.OfferExpired, models.OfferActive, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to expire offers: %w", err)
	}

	var expired []models.ExpiredOffer
	for rows.Next() {
		var o models.ExpiredOffer
		if err := rows.Scan(&o.OfferID, &o.SupplierID, &o.RequestID, &o.PriceCents); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expired offer: %w", err)
		}
		expired = append(expired, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read expired offers: %w", err)
	}
	rows.Close()

	// Request details for the notification text
	for i := range expired {
		err := tx.QueryRowContext(ctx, `
			SELECT volume_liters, delivery_address FROM water_request WHERE id = $1
		`, expired[i].RequestID).Scan(&expired[i].VolumeLiters, &expired[i].DeliveryAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to load request %s: %w", expired[i].RequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expiry: %w", err)
	}

	return expired, nil
}

type NotificationStore struct {
	q Querier
}

// NewNotificationStore writes through q, which may be a transaction
func NewNotificationStore(q Querier) *NotificationStore {
	return &NotificationStore{q: q}
}

const notificationColumns = 8

// InsertNotifications writes the whole batch in one statement
func (s *NotificationStore) InsertNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO notification (id, recipient_id, kind, message, offer_id, request_id, read_at, created_at) VALUES `)
	args := make([]any, 0, len(ns)*notificationColumns)
	for i, n := range ns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := 0; c < notificationColumns; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*notificationColumns+c+1)
		}
		b.WriteString(")")

		var readAt *time.Time
		if n.ReadAt != nil {
			t := n.ReadAt.UTC()
			readAt = &t
		}
		args = append(args, n.ID, n.RecipientID, n.Kind, n.Message, n.OfferID, n.RequestID, readAt, n.CreatedAt.UTC())
	}

	if _, err := s.q.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("failed to insert %d notifications: %w", len(ns), err)
	}
	return nil
}

// ListForRecipient returns a recipient's notifications, newest first
func (s *NotificationStore) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, recipient_id, kind, message, offer_id, request_id, read_at, created_at
		FROM notification
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var (
			n         models.Notification
			offerID   sql.NullString
			requestID sql.NullString
			readAt    sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Message, &offerID, &requestID, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if offerID.Valid {
			n.OfferID = &offerID.String
		}
		if requestID.Valid {
			n.RequestID = &requestID.String
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets read_at on a notification owned by recipientID, keeping the
// first read time. It reports false when no such notification exists.
func (s *NotificationStore) MarkRead(ctx context.Context, id, recipientID string, now time.Time) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE notification SET read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND recipient_id = $3
	`, now.UTC(), id, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountUnread returns the number of unread notifications for a recipient
func (s *NotificationStore) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification WHERE recipient_id = $1 AND read_at IS NULL
	`, recipientID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}
