// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package offline

import (
	"context"
	"log/slog"
	"time"
)

// Probe reports whether the server is reachable
type Probe func(ctx context.Context) bool

// Watcher drains the queue whenever connectivity comes back
type Watcher struct {
	Queue    *Queue
	Probe    Probe
	Interval time.Duration
	// OnDrain, when set, receives the outcomes of every triggered drain
	OnDrain func([]Outcome)
}

// Run polls the probe until ctx is done. A drain is triggered on every
// offline to online transition, and on each later tick while online if
// items are still queued, so a failed drain is retried without waiting
// for the connection to drop.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		up := w.Probe(ctx)
		switch {
		case up && !online:
			slog.Info("connectivity restored, draining offline queue")
			w.drain(ctx)
		case up && w.Queue.Len() > 0:
			slog.Debug("retrying offline queue", "queued", w.Queue.Len())
			w.drain(ctx)
		case !up && online:
			slog.Info("connectivity lost")
		}
		online = up

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) drain(ctx context.Context) {
	outcomes := w.Queue.Drain(ctx)
	if w.OnDrain != nil {
		w.OnDrain(outcomes)
	}
}
