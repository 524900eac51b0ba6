// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package guard

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Role string

const (
	Admin    Role = "admin"
	Supplier Role = "supplier"
	Consumer Role = "consumer"

	// Anonymous is the role of an unauthenticated caller
	Anonymous Role = ""
)

var (
	ErrUnknownRole         = errors.New("unknown role")
	ErrDuplicateRole       = errors.New("role listed twice")
	ErrRelativePrefix      = errors.New("route prefix must start with /")
	ErrOverlappingPrefix   = errors.New("route prefix claimed by two roles")
	ErrMissingDefaultLogin = errors.New("default login route required")
)

type DecisionKind int

const (
	Allow DecisionKind = iota
	RedirectLogin
	RedirectHome
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// Decision is the outcome of Authorize. Target is empty for Allow.
type Decision struct {
	Kind   DecisionKind
	Target string
}

// Classification reports who owns a path. Public is true for public routes
// and for paths no role claims.
type Classification struct {
	Public bool
	Role   Role
}

// RoleRoutes lists the path prefixes a role owns and where its members land.
// Login overrides the policy's DefaultLogin for unauthenticated callers.
type RoleRoutes struct {
	Role     Role     `yaml:"role"`
	Prefixes []string `yaml:"prefixes"`
	Home     string   `yaml:"home"`
	Login    string   `yaml:"login,omitempty"`
}

type Policy struct {
	PublicExact    []string     `yaml:"public_exact"`
	PublicPrefixes []string     `yaml:"public_prefixes"`
	Roles          []RoleRoutes `yaml:"roles"`
	DefaultLogin   string       `yaml:"default_login"`
}

// DefaultPolicy is the route table the server ships with
func DefaultPolicy() *Policy {
	return &Policy{
		PublicExact: []string{"/"},
		PublicPrefixes: []string{
			"/login",
			"/signup",
			"/admin/login",
			"/offline",
			"/static",
			"/health",
			"/api/auth",
			"/api/cron",
		},
		Roles: []RoleRoutes{
			{Role: Admin, Prefixes: []string{"/admin", "/api/admin"}, Home: "/admin", Login: "/admin/login"},
			{Role: Supplier, Prefixes: []string{"/supplier", "/api/supplier"}, Home: "/supplier"},
			{Role: Consumer, Prefixes: []string{"/consumer", "/api/consumer"}, Home: "/consumer"},
		},
		DefaultLogin: "/login",
	}
}

// NormalizePath drops the query string, fragment and trailing slash
func NormalizePath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if len(raw) > 1 {
		raw = strings.TrimRight(raw, "/")
		if raw == "" {
			return "/"
		}
	}
	return raw
}

// hasPrefix matches whole path segments: /admin owns /admin and /admin/x
// but not /administrator.
func hasPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func (p *Policy) isPublic(path string) bool {
	for _, exact := range p.PublicExact {
		if path == exact {
			return true
		}
	}
	for _, prefix := range p.PublicPrefixes {
		if hasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Classify reports whether a normalized path is public or owned by a role.
// Paths no role claims are public.
func (p *Policy) Classify(path string) Classification {
	if p.isPublic(path) {
		return Classification{Public: true}
	}
	for _, rr := range p.Roles {
		for _, prefix := range rr.Prefixes {
			if hasPrefix(path, prefix) {
				return Classification{Role: rr.Role}
			}
		}
	}
	return Classification{Public: true}
}

// Authorize decides whether a caller with the given role may reach path.
// It has no side effects and never fails.
func (p *Policy) Authorize(path string, actual Role) Decision {
	c := p.Classify(NormalizePath(path))
	if c.Public {
		return Decision{Kind: Allow}
	}
	if actual == Anonymous {
		return Decision{Kind: RedirectLogin, Target: p.LoginRouteFor(c.Role)}
	}
	if actual == c.Role {
		return Decision{Kind: Allow}
	}
	return Decision{Kind: RedirectHome, Target: p.HomeRouteFor(actual)}
}

// HomeRouteFor returns the landing page for a role, or / for unknown roles
func (p *Policy) HomeRouteFor(role Role) string {
	for _, rr := range p.Roles {
		if rr.Role == role && rr.Home != "" {
			return rr.Home
		}
	}
	return "/"
}

// LoginRouteFor returns the login entry point for a route owned by required
func (p *Policy) LoginRouteFor(required Role) string {
	for _, rr := range p.Roles {
		if rr.Role == required && rr.Login != "" {
			return rr.Login
		}
	}
	if p.DefaultLogin == "" {
		return "/login"
	}
	return p.DefaultLogin
}

// LoginRedirect appends the originally requested path as returnTo
func LoginRedirect(target, returnTo string) string {
	if returnTo == "" {
		return target
	}
	return target + "?returnTo=" + url.QueryEscape(returnTo)
}

// ParseRole maps a stored role string to a Role. Unknown values are kept
// as-is so they fall through to the default home route.
func ParseRole(s string) Role {
	return Role(strings.TrimSpace(s))
}

func knownRole(r Role) bool {
	return r == Admin || r == Supplier || r == Consumer
}

// Validate checks that no prefix is owned by two roles and that every
// route is absolute.
func (p *Policy) Validate() error {
	if p.DefaultLogin == "" {
		return ErrMissingDefaultLogin
	}
	for _, r := range append(append([]string{}, p.PublicExact...), p.PublicPrefixes...) {
		if !strings.HasPrefix(r, "/") {
			return fmt.Errorf("%w: public route %q", ErrRelativePrefix, r)
		}
	}

	seen := map[Role]bool{}
	for _, rr := range p.Roles {
		if !knownRole(rr.Role) {
			return fmt.Errorf("%w: %q", ErrUnknownRole, rr.Role)
		}
		if seen[rr.Role] {
			return fmt.Errorf("%w: %q", ErrDuplicateRole, rr.Role)
		}
		seen[rr.Role] = true
		for _, prefix := range rr.Prefixes {
			if !strings.HasPrefix(prefix, "/") {
				return fmt.Errorf("%w: %s owns %q", ErrRelativePrefix, rr.Role, prefix)
			}
		}
	}

	for i, a := range p.Roles {
		for _, b := range p.Roles[i+1:] {
			for _, pa := range a.Prefixes {
				for _, pb := range b.Prefixes {
					pa, pb := NormalizePath(pa), NormalizePath(pb)
					if hasPrefix(pa, pb) || hasPrefix(pb, pa) {
						return fmt.Errorf("%w: %s %q and %s %q", ErrOverlappingPrefix, a.Role, pa, b.Role, pb)
					}
				}
			}
		}
	}
	return nil
}
