package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/aquadrop/cliparse"
	"github.com/danielhkuo/aquadrop/db"
	"github.com/danielhkuo/aquadrop/expiry"
	"github.com/danielhkuo/aquadrop/guard"
	"github.com/danielhkuo/aquadrop/router"
	"github.com/danielhkuo/aquadrop/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	driver, err := db.DriverName(cfg.DatabaseType)
	if err != nil {
		slog.Error("unsupported database", "error", err)
		os.Exit(1)
	}

	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if cfg.DatabaseType == db.SQLite {
		// one writer; foreign keys are off by default per connection
		dbConn.SetMaxOpenConns(1)
		if _, err := dbConn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			slog.Error("failed to enable foreign keys", "error", err)
			os.Exit(1)
		}
	}

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	policy, err := guard.LoadPolicy(cfg.RoutePolicyPath)
	if err != nil {
		slog.Error("route policy invalid", "path", cfg.RoutePolicyPath, "error", err)
		os.Exit(1)
	}

	if cfg.CronSecret == "" {
		slog.Warn("CRON_SECRET not set; the expiry endpoint will reject every call")
	}

	server := &http.Server{
		Handler: router.NewHandler(dbConn, cfg, policy),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.SweepInterval > 0 {
		sched := &expiry.Scheduler{
			Sweeper:  expiry.NewSweeper(store.NewOfferStore(dbConn), store.NewNotificationStore(dbConn)),
			Interval: cfg.SweepInterval,
		}
		g.Go(func() error {
			slog.Info("in-process expiry sweep enabled", "interval", cfg.SweepInterval)
			return sched.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}
