// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables for the given dialect:

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
Postgres and SQLite get separate DDL; the only difference is the timestamp
column type.

# Tables

  - profile: Accounts with their role (admin, supplier, consumer)
  - water_request: Delivery requests posted by consumers
  - offer: Supplier bids on a request, with an expiry time
  - notification: Per-recipient messages (offer_expired, offer_received, offer_accepted)
  - push_subscription: Registered push endpoints per profile

# Relationships

	profile 1──* water_request
	water_request 1──* offer
	profile 1──* offer (supplier)
	profile 1──* notification
	profile 1──* push_subscription

Profile and request foreign keys cascade. Notifications keep their row when the
offer or request they mention is deleted.

# Indexes

  - offer.(status, expires_at) for the expiry sweep
  - offer.request_id
  - water_request.status
  - notification.(recipient_id, created_at)
  - water_request.(consumer_id, client_ref) unique, for replayed offline submissions
*/
package db
