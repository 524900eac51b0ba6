// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/guard"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/models"
)

const minPasswordLen = 8

type AuthHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	policy *guard.Policy
}

func NewAuthHandler(db *sql.DB, cfg cliparse.Config, policy *guard.Policy) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, policy: policy}
}

// Signup handles POST /api/auth/signup
// Creates a consumer or supplier account and logs it in. Admins are only
// made by promoting an existing account.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleConsumer
	}
	if req.Role != models.RoleConsumer && req.Role != models.RoleSupplier {
		middleware.ErrorResponse(w, http.StatusBadRequest, "role must be one of: consumer, supplier")
		return
	}

	var exists int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM profile WHERE email = $1`, email).Scan(&exists)
	if err != nil {
		slog.Error("failed to check email", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	userID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate profile ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO profile (id, email, password_hash, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, email, hash, strings.TrimSpace(req.FullName), req.Role, time.Now().UTC())
	if err != nil {
		slog.Error("failed to insert profile", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	slog.Info("profile created", "user_id", userID, "role", req.Role)

	if !h.startSession(w, r, userID, req.Role) {
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{
		UserID: userID,
		Role:   req.Role,
		Home:   h.policy.HomeRouteFor(guard.ParseRole(req.Role)),
	})
}

// Login handles POST /api/auth/login
// Sets the session cookie and returns the caller's home route
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var userID, hash, role string
	err := h.db.QueryRow(`
		SELECT id, password_hash, role FROM profile WHERE email = $1
	`, email).Scan(&userID, &hash, &role)

	if err == sql.ErrNoRows {
		slog.Warn("login failed", "reason", "unknown email", "ip", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		slog.Error("failed to query profile", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		slog.Warn("login failed", "reason", "bad password", "user_id", userID, "ip", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !h.startSession(w, r, userID, role) {
		return
	}

	slog.Info("login", "user_id", userID, "role", role)
	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{
		UserID: userID,
		Role:   role,
		Home:   h.policy.HomeRouteFor(guard.ParseRole(role)),
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.LoginEntry{
		Page:     "login",
		Endpoint: "/api/auth/login",
		ReturnTo: safeReturnTo(r.URL.Query().Get("returnTo")),
	})
}

// AdminLoginPage handles GET /admin/login
func (h *AuthHandler) AdminLoginPage(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.LoginEntry{
		Page:     "admin_login",
		Endpoint: "/api/auth/login",
		ReturnTo: safeReturnTo(r.URL.Query().Get("returnTo")),
	})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID, role string) bool {
	expires := time.Now().Add(SessionTTL)
	token, err := auth.IssueSession(auth.Session{UserID: userID, Role: role, ExpiresAt: expires}, h.cfg.SessionSecret)
	if err != nil {
		slog.Error("failed to issue session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// safeReturnTo keeps only same-site absolute paths
func safeReturnTo(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	return p
}
