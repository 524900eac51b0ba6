// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the AquaDrop API server.

AquaDrop is a water-delivery marketplace: consumers post water requests,
suppliers answer with time-limited offers, and the consumer accepts one.
Offers that lapse are expired by a scheduled sweep and their suppliers
are notified.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	SESSION_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -session-secret ...

A .env file in the working directory (or ENV_FILE) is loaded first;
variables already set in the environment win.

# Configuration

Required settings:

  - SESSION_SECRET (-session-secret): HMAC key for session cookies

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - DATABASE_URL (-d): connection string; defaults to aquadrop.db for sqlite
  - CRON_SECRET (-cron-secret): bearer secret for /api/cron/expire-offers
  - ROUTE_POLICY (-policy): YAML route policy file
  - OFFER_TTL (-offer-ttl): default offer validity (default: 24h)
  - SWEEP_INTERVAL (-sweep-interval): run the expiry sweep in-process too
  - CORS_ORIGINS (-cors-origins): comma-separated frontend origins allowed
    to make credentialed cross-origin calls (default: none)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (auth, requests, offers, admin, notifications)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, role guard
  - guard: Role-route policy
  - expiry: Offer expiry sweep and scheduler
  - store: SQL collaborators for the sweep and notifications
  - offline: Offline submission queue used by cmd/queuectl
  - models: Request/response types
  - auth: Sessions, passwords, bearer secrets
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
