// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides session tokens, shared-secret checks, and password hashing.

# Session Tokens

Sessions are HMAC-SHA256 signed and self-contained:

	token, err := auth.IssueSession(auth.Session{UserID: id, Role: "consumer", ExpiresAt: exp}, secret)
	s, err := auth.ParseSession(token, secret, time.Now())

The token is the URL-safe base64 JSON payload followed by a dot and the
base64 signature. The role is embedded at login so the edge route guard can
decide without a database round trip. Page-level checks re-read the role
from the profile table.

# Bearer Secrets

The cron endpoint compares the Authorization header with a server-held secret:

	if err := auth.ValidateBearer(r.Header.Get("Authorization"), cfg.CronSecret); err != nil {
		// 401
	}

# Passwords

bcrypt with the default cost:

	hash, err := auth.HashPassword(pw)
	err = auth.CheckPassword(hash, pw)

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
