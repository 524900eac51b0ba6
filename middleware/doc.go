// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms). Every request gets an X-Request-ID, kept from the client when
present, and both log lines carry it as request_id.

# Role Guard

RoleGuard wraps the whole mux and applies the route policy before routing:

	handler := middleware.RoleGuard(policy, cfg.SessionSecret, mux)

Unauthenticated callers on a protected route get a 307 to the role's login
page with returnTo set to the requested path; callers with the wrong role get
a 307 to their own home. The verified session is stored in the request
context and handlers read it with SessionFromRequest.

# CORS Middleware

Enable cross-origin requests for the listed frontend origins:

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSOrigins, mux),
	}

A listed Origin is echoed back with credentials allowed, methods GET, POST,
PUT, DELETE, OPTIONS and headers Content-Type, Authorization, X-Request-ID.
Any other origin gets no CORS headers at all.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.CreateWaterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Logged on failed logins.
*/
package middleware
