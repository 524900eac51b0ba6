// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Supported dialects
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect string) error {
	var ddl string
	switch dialect {
	case Postgres:
		ddl = postgresSchema
	case SQLite:
		ddl = sqliteSchema
	default:
		return fmt.Errorf("unsupported database type %q", dialect)
	}

	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DriverName maps a dialect to the database/sql driver registered for it
func DriverName(dialect string) (string, error) {
	switch dialect {
	case Postgres:
		return "postgres", nil
	case SQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported database type %q", dialect)
}

const postgresSchema = `
-- Profiles
CREATE TABLE IF NOT EXISTS profile (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'consumer' CHECK (role IN ('admin', 'supplier', 'consumer')),
    created_at TIMESTAMPTZ NOT NULL
);

-- Water requests
CREATE TABLE IF NOT EXISTS water_request (
    id TEXT PRIMARY KEY,
    consumer_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    volume_liters INTEGER NOT NULL CHECK (volume_liters > 0),
    delivery_address TEXT NOT NULL,
    preferred_date TIMESTAMPTZ,
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'delivered', 'cancelled')),
    client_ref TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (consumer_id, client_ref)
);

CREATE INDEX IF NOT EXISTS idx_water_request_status ON water_request(status);

-- Offers
CREATE TABLE IF NOT EXISTS offer (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL REFERENCES water_request(id) ON DELETE CASCADE,
    supplier_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    price_cents INTEGER NOT NULL CHECK (price_cents > 0),
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'accepted', 'rejected', 'expired')),
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_offer_status_expires ON offer(status, expires_at);
CREATE INDEX IF NOT EXISTS idx_offer_request_id ON offer(request_id);

-- Notifications
CREATE TABLE IF NOT EXISTS notification (
    id TEXT PRIMARY KEY,
    recipient_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    message TEXT NOT NULL,
    offer_id TEXT REFERENCES offer(id) ON DELETE SET NULL,
    request_id TEXT REFERENCES water_request(id) ON DELETE SET NULL,
    read_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_recipient ON notification(recipient_id, created_at);

-- Push subscriptions
CREATE TABLE IF NOT EXISTS push_subscription (
    id TEXT PRIMARY KEY,
    profile_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    endpoint TEXT NOT NULL UNIQUE,
    platform TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    last_seen_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_push_subscription_profile ON push_subscription(profile_id)
`

// Timestamps are stored as UTC text in SQLite; callers always bind UTC times
// so lexical comparison matches chronological order.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profile (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'consumer' CHECK (role IN ('admin', 'supplier', 'consumer')),
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS water_request (
    id TEXT PRIMARY KEY,
    consumer_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    volume_liters INTEGER NOT NULL CHECK (volume_liters > 0),
    delivery_address TEXT NOT NULL,
    preferred_date TIMESTAMP,
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'delivered', 'cancelled')),
    client_ref TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (consumer_id, client_ref)
);

CREATE INDEX IF NOT EXISTS idx_water_request_status ON water_request(status);

CREATE TABLE IF NOT EXISTS offer (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL REFERENCES water_request(id) ON DELETE CASCADE,
    supplier_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    price_cents INTEGER NOT NULL CHECK (price_cents > 0),
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'accepted', 'rejected', 'expired')),
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_offer_status_expires ON offer(status, expires_at);
CREATE INDEX IF NOT EXISTS idx_offer_request_id ON offer(request_id);

CREATE TABLE IF NOT EXISTS notification (
    id TEXT PRIMARY KEY,
    recipient_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    message TEXT NOT NULL,
    offer_id TEXT REFERENCES offer(id) ON DELETE SET NULL,
    request_id TEXT REFERENCES water_request(id) ON DELETE SET NULL,
    read_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_recipient ON notification(recipient_id, created_at);

CREATE TABLE IF NOT EXISTS push_subscription (
    id TEXT PRIMARY KEY,
    profile_id TEXT NOT NULL REFERENCES profile(id) ON DELETE CASCADE,
    endpoint TEXT NOT NULL UNIQUE,
    platform TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_push_subscription_profile ON push_subscription(profile_id)
`
