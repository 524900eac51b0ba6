// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package expiry moves overdue offers to the expired state and tells their
suppliers.

An offer is overdue when its status is active and expires_at is strictly
before the sweep time. The status change happens in a single conditional
update, so two sweeps running at once never both claim the same offer and a
second sweep right after the first finds nothing.

	s := expiry.NewSweeper(offerStore, notificationStore)
	res, err := s.Sweep(ctx, time.Now())

Each expired offer gets one offer_expired notification addressed to its
supplier. Notifications are written in one batch after the update has been
committed; if that batch fails the sweep still reports success and the
notifications are lost. They are not retried.

Scheduler runs Sweep on an interval for deployments without an external
cron caller.
*/
package expiry
