// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Connection string or SQLite file (default for sqlite: aquadrop.db)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - SessionSecret: HMAC key for session cookies (required)
  - CronSecret: Bearer secret for /api/cron/expire-offers (empty rejects every call)
  - RoutePolicyPath: YAML route policy (default: built-in policy)
  - OfferTTL: Lifetime of a new offer (default: 24h)
  - SweepInterval: In-process expiry sweep (default: 0, disabled)
  - EnvFile: Env file loaded before the fallback (default: .env)

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type
	-session-secret  Session secret
	-cron-secret     Cron secret
	-policy          Route policy file
	-offer-ttl       Offer lifetime
	-sweep-interval  Sweep interval
	-env             Env file

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	SESSION_SECRET → -session-secret
	CRON_SECRET    → -cron-secret
	ROUTE_POLICY   → -policy
	OFFER_TTL      → -offer-ttl
	SWEEP_INTERVAL → -sweep-interval
	ENV_FILE       → -env

CLI flags take precedence over environment variables. The env file is read
with godotenv and never overrides a variable that is already set; a missing
env file is not an error.

# Validation

ParseFlags returns an error if:

  - SESSION_SECRET is missing
  - DATABASE_URL is missing for postgres
  - the database type, port or a duration does not parse
*/
package cliparse
