// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the AquaDrop API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - AuthHandler: Signup, login, logout and the login entry points
  - RequestHandler: Consumer water requests and offer acceptance
  - OfferHandler: Supplier view of open requests and offer creation
  - AdminHandler: User and offer administration
  - NotificationHandler: In-app notification inbox
  - PushHandler: Push endpoint registration
  - PageHandler: Role dashboards with a second route check
  - CronHandler: Scheduled offer expiry

Handlers are created via constructor functions that accept *sql.DB and Config:

	requestHandler := handlers.NewRequestHandler(db, cfg)

# Offer Lifecycle

An offer starts active and ends in exactly one of accepted, rejected or
expired:

	POST /api/supplier/offers              → CreateOffer (active)
	POST /api/consumer/offers/{id}/accept  → AcceptOffer (accepted; siblings rejected)
	GET  /api/cron/expire-offers           → ExpireOffers (active past expires_at → expired)

An offer past its expiry cannot be accepted even if the sweep has not run yet.

# Sessions

Logins set a signed session cookie. Handlers read it through
middleware.SessionFromRequest, which reuses the session the route guard
already verified.

# Offline Submissions

CreateRequest answers with a SubmissionResponse envelope. Requests carrying
a client_ref are deduplicated per consumer, so a queued request replayed by
the offline client returns the original request with duplicate set.
*/
package handlers
