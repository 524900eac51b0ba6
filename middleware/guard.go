// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/guard"
)

// RoleGuard applies the route policy before any handler runs. The caller's
// role comes from the signed session cookie; a missing or invalid cookie
// counts as unauthenticated.
func RoleGuard(policy *guard.Policy, secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := guard.Anonymous
		if s, err := sessionFromCookie(r, secret, time.Now()); err == nil {
			role = guard.ParseRole(s.Role)
			r = r.WithContext(WithSession(r.Context(), s))
		}

		d := policy.Authorize(r.URL.Path, role)
		switch d.Kind {
		case guard.Allow:
			next.ServeHTTP(w, r)
		case guard.RedirectLogin:
			slog.Debug("guard redirect", "path", r.URL.Path, "decision", d.Kind.String(), "target", d.Target)
			http.Redirect(w, r, guard.LoginRedirect(d.Target, r.URL.Path), http.StatusTemporaryRedirect)
		case guard.RedirectHome:
			slog.Debug("guard redirect", "path", r.URL.Path, "role", string(role), "decision", d.Kind.String(), "target", d.Target)
			http.Redirect(w, r, d.Target, http.StatusTemporaryRedirect)
		}
	})
}

// WithSession stores a verified session in the context
func WithSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromRequest returns the session RoleGuard verified, or verifies the
// cookie itself when the request did not pass through the guard.
func SessionFromRequest(r *http.Request, secret string) (auth.Session, error) {
	if s, ok := r.Context().Value(sessionKey).(auth.Session); ok {
		return s, nil
	}
	return sessionFromCookie(r, secret, time.Now())
}

func sessionFromCookie(r *http.Request, secret string, now time.Time) (auth.Session, error) {
	c, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return auth.Session{}, auth.ErrUnauthorized
	}
	return auth.ParseSession(c.Value, secret, now)
}
