// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/expiry"
	"github.com/danielhkuo/aquadrop/guard"
	"github.com/danielhkuo/aquadrop/handlers"
	"github.com/danielhkuo/aquadrop/middleware"
	"github.com/danielhkuo/aquadrop/store"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, policy *guard.Policy) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, policy)
	requestHandler := handlers.NewRequestHandler(db, cfg)
	offerHandler := handlers.NewOfferHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(db, cfg)
	notificationHandler := handlers.NewNotificationHandler(db, cfg)
	pushHandler := handlers.NewPushHandler(db, cfg)
	pageHandler := handlers.NewPageHandler(db, cfg, policy)

	sweeper := expiry.NewSweeper(store.NewOfferStore(db), store.NewNotificationStore(db))
	cronHandler := handlers.NewCronHandler(sweeper, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Authentication (public)
	mux.HandleFunc("POST /api/auth/signup", middleware.WithLogging(authHandler.Signup))
	mux.HandleFunc("POST /api/auth/login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("GET /login", middleware.WithLogging(authHandler.LoginPage))
	mux.HandleFunc("GET /admin/login", middleware.WithLogging(authHandler.AdminLoginPage))

	// Consumer operations
	mux.HandleFunc("POST /api/consumer/requests", middleware.WithLogging(requestHandler.CreateRequest))
	mux.HandleFunc("GET /api/consumer/requests", middleware.WithLogging(requestHandler.ListRequests))
	mux.HandleFunc("POST /api/consumer/offers/{id}/accept", middleware.WithLogging(requestHandler.AcceptOffer))

	// Supplier operations
	mux.HandleFunc("GET /api/supplier/requests", middleware.WithLogging(offerHandler.ListOpenRequests))
	mux.HandleFunc("POST /api/supplier/offers", middleware.WithLogging(offerHandler.CreateOffer))
	mux.HandleFunc("GET /api/supplier/offers", middleware.WithLogging(offerHandler.ListMyOffers))

	// Administration
	mux.HandleFunc("GET /api/admin/users", middleware.WithLogging(adminHandler.ListUsers))
	mux.HandleFunc("POST /api/admin/users/{id}/role", middleware.WithLogging(adminHandler.ChangeRole))
	mux.HandleFunc("GET /api/admin/offers", middleware.WithLogging(adminHandler.ListOffers))

	// Any signed-in role
	mux.HandleFunc("GET /api/notifications", middleware.WithLogging(notificationHandler.List))
	mux.HandleFunc("POST /api/notifications/{id}/read", middleware.WithLogging(notificationHandler.MarkRead))
	mux.HandleFunc("POST /api/push/subscribe", middleware.WithLogging(pushHandler.Subscribe))
	mux.HandleFunc("GET /api/push/subscriptions", middleware.WithLogging(pushHandler.ListSubscriptions))

	// Dashboards
	mux.HandleFunc("GET /consumer", middleware.WithLogging(pageHandler.Consumer))
	mux.HandleFunc("GET /supplier", middleware.WithLogging(pageHandler.Supplier))
	mux.HandleFunc("GET /admin", middleware.WithLogging(pageHandler.Admin))

	// Scheduled jobs (bearer secret)
	mux.HandleFunc("GET /api/cron/expire-offers", middleware.WithLogging(cronHandler.ExpireOffers))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("aquadrop API v1"))
	})

	return mux
}

// NewHandler is the full server stack: CORS, then the route guard, then the mux
func NewHandler(db *sql.DB, cfg cliparse.Config, policy *guard.Policy) http.Handler {
	return middleware.CORS(cfg.CORSOrigins, middleware.RoleGuard(policy, cfg.SessionSecret, NewRouter(db, cfg, policy)))
}
