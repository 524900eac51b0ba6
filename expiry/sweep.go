// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/models"
)

// OfferExpirer moves every active offer with expires_at < now to expired in
// one atomic step and returns the offers it changed. Each offer must be
// returned by at most one call.
type OfferExpirer interface {
	ExpireActiveOffers(ctx context.Context, now time.Time) ([]models.ExpiredOffer, error)
}

// NotificationSink stores a batch of notifications in one call
type NotificationSink interface {
	InsertNotifications(ctx context.Context, ns []models.Notification) error
}

type Result struct {
	ExpiredCount int
	Duration     time.Duration
}

type Sweeper struct {
	offers  OfferExpirer
	sink    NotificationSink
	elapsed func(time.Time) time.Duration
	logger  *slog.Logger
}

type Option func(*Sweeper)

// WithElapsed replaces time.Since when measuring a sweep
func WithElapsed(f func(time.Time) time.Duration) Option {
	return func(s *Sweeper) { s.elapsed = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

func NewSweeper(offers OfferExpirer, sink NotificationSink, opts ...Option) *Sweeper {
	s := &Sweeper{
		offers:  offers,
		sink:    sink,
		elapsed: time.Since,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep expires overdue offers and notifies each supplier once per offer.
// A failed notification batch is logged and does not fail the sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()

	expired, err := s.offers.ExpireActiveOffers(ctx, now)
	if err != nil {
		d := s.elapsed(start)
		s.logger.Error("offer expiry failed", "error", err, "duration_ms", d.Milliseconds())
		return Result{Duration: d}, fmt.Errorf("failed to expire offers: %w", err)
	}

	if len(expired) > 0 {
		notifications := make([]models.Notification, 0, len(expired))
		for _, o := range expired {
			n, err := OfferExpiredNotification(o, now)
			if err != nil {
				s.logger.Error("failed to build notification", "offer_id", o.OfferID, "error", err)
				continue
			}
			notifications = append(notifications, n)
		}
		if err := s.sink.InsertNotifications(ctx, notifications); err != nil {
			s.logger.Error("failed to insert expiry notifications",
				"error", err,
				"count", len(notifications),
			)
		}
	}

	d := s.elapsed(start)
	s.logger.Info("offer expiry sweep finished",
		"expired_count", len(expired),
		"duration_ms", d.Milliseconds(),
	)
	return Result{ExpiredCount: len(expired), Duration: d}, nil
}

// OfferExpiredNotification builds the message a supplier gets when an offer lapses
func OfferExpiredNotification(o models.ExpiredOffer, now time.Time) (models.Notification, error) {
	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Notification{}, err
	}
	offerID, requestID := o.OfferID, o.RequestID
	return models.Notification{
		ID:          id,
		RecipientID: o.SupplierID,
		Kind:        models.KindOfferExpired,
		Message:     ExpiredMessage(o),
		OfferID:     &offerID,
		RequestID:   &requestID,
		CreatedAt:   now.UTC(),
	}, nil
}

// ExpiredMessage is the human-readable text of an offer_expired notification
func ExpiredMessage(o models.ExpiredOffer) string {
	return fmt.Sprintf("Your offer of %s for %s L delivered to %s has expired without a response.",
		FormatPrice(o.PriceCents), humanize.Comma(int64(o.VolumeLiters)), o.DeliveryAddress)
}

// FormatPrice renders cents as a dollar amount with thousands separators
func FormatPrice(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(int64(cents/100)), cents%100)
}
