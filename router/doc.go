// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the AquaDrop API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, policy)

NewHandler wraps the mux with CORS and the role guard and is what the
server listens with:

	handler := router.NewHandler(db, cfg, policy)

# Endpoints

Health:

	GET /health

Authentication (public):

	POST /api/auth/signup  - Create consumer or supplier account
	POST /api/auth/login   - Start a session
	POST /api/auth/logout  - End the session
	GET  /login            - Login entry point
	GET  /admin/login      - Admin login entry point

Consumer:

	POST /api/consumer/requests            - Post a water request (offline queue target)
	GET  /api/consumer/requests            - List own requests
	POST /api/consumer/offers/{id}/accept  - Accept an offer

Supplier:

	GET  /api/supplier/requests - Pending requests open for offers
	POST /api/supplier/offers   - Make an offer
	GET  /api/supplier/offers   - List own offers

Admin:

	GET  /api/admin/users           - List users
	POST /api/admin/users/{id}/role - Change a user's role
	GET  /api/admin/offers          - List offers, optionally by status

Any signed-in user:

	GET  /api/notifications           - Inbox
	POST /api/notifications/{id}/read - Mark read
	POST /api/push/subscribe          - Register push endpoint
	GET  /api/push/subscriptions      - List push endpoints

Dashboards:

	GET /consumer, /supplier, /admin

Scheduled jobs:

	GET /api/cron/expire-offers - Offer expiry sweep (Authorization: Bearer <CRON_SECRET>)
*/
package router
