// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store holds the SQL implementations behind the expiry sweep and the
notification endpoints.

	offers := store.NewOfferStore(conn)
	notes := store.NewNotificationStore(conn)
	sweeper := expiry.NewSweeper(offers, notes)

OfferStore.ExpireActiveOffers runs one UPDATE ... RETURNING inside a
transaction and then loads the request each expired offer belongs to. Both
Postgres and SQLite support RETURNING, so the same statement serves both.

NotificationStore takes a Querier so handlers can write notifications inside
the transaction that caused them. InsertNotifications sends the whole batch
as a single multi-row INSERT.

All times are bound in UTC.
*/
package store
