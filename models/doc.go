// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - SignupRequest: email, password, full_name, role
  - LoginRequest: email, password
  - CreateWaterRequest: volume_liters, delivery_address, client_ref
  - CreateOfferRequest: request_id, price_cents, valid_for_minutes
  - ChangeRoleRequest: role
  - PushSubscribeRequest: endpoint, platform

# Response Types

Types for JSON responses:

  - SessionResponse: user_id, role, home
  - SubmissionResponse: success, data, error_code (request creation)
  - CreateOfferResponse: offer_id, expires_at
  - SweepResponse: expired_count, duration_ms
  - ErrorResponse: error, message

# Domain Types

  - Profile: marketplace member and its role
  - WaterRequest: a consumer's delivery request
  - Offer: a supplier's time-bounded proposal for a request
  - ExpiredOffer: an offer the expiry sweep transitioned, with request details
  - Notification: in-app message for a member
  - PushSubscription: registered push endpoint

# Lifecycles

Requests move pending → accepted → delivered (or cancelled).

Offers start active and end accepted, rejected, or expired. Expired is
terminal and only the expiry sweep sets it.

# Roles

	RoleAdmin    = "admin"
	RoleSupplier = "supplier"
	RoleConsumer = "consumer"
*/
package models
