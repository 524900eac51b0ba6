// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package expiry

import (
	"context"
	"errors"
	"time"
)

var ErrBadInterval = errors.New("sweep interval must be positive")

// Scheduler runs a sweep on a fixed interval inside the server process.
// It complements the external cron caller; overlapping runs are harmless
// because already expired offers never match again.
type Scheduler struct {
	Sweeper  *Sweeper
	Interval time.Duration
	Now      func() time.Time
}

// Run sweeps every Interval until ctx is done. Sweep errors are logged by
// the sweeper and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return ErrBadInterval
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweeper.Sweep(ctx, now())
		}
	}
}
