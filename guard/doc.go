// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package guard decides which role may reach which URL path.

# Policy

A Policy lists public routes and, per role, the path prefixes the role owns:

	p := guard.DefaultPolicy()
	p, err := guard.LoadPolicy("route-policy.yaml")

Prefixes match whole segments, so /admin owns /admin/users but not
/administrator. Validate rejects a prefix claimed by two roles.

# Decisions

	d := p.Authorize(r.URL.Path, role)
	switch d.Kind {
	case guard.Allow:
	case guard.RedirectLogin:
		http.Redirect(w, r, guard.LoginRedirect(d.Target, r.URL.Path), http.StatusTemporaryRedirect)
	case guard.RedirectHome:
		http.Redirect(w, r, d.Target, http.StatusTemporaryRedirect)
	}

Public routes are checked first and allow everyone. Paths that no role
claims are allowed too; every sensitive prefix has to be registered.
Unauthenticated callers (Anonymous) are sent to the owning role's login
page. Members of another role are sent to their own home route, or to /
when the role is unknown.

Authorize is a pure function of (path, role). The edge middleware calls it
with the role from the session cookie, page handlers call it again with the
role read from the database, and both get the same answer.
*/
package guard
