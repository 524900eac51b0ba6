package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	DatabaseURL     string
	DatabaseType    string
	SessionSecret   string
	CronSecret      string
	RoutePolicyPath string
	OfferTTL        time.Duration
	SweepInterval   time.Duration
	EnvFile         string
	CORSOrigins     []string
}

const (
	DefaultPort      = 3318
	DefaultOfferTTL  = 24 * time.Hour
	DefaultSQLiteURL = "aquadrop.db"
)

// ParseFlags validates flags and falls back to the environment.
// Values from the env file never override variables that are already set.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var corsOrigins string

	flags := flag.NewFlagSet("aquadrop", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	flags.IntVar(&cfg.Port, "p", 0, "Server port")
	flags.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	flags.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.SessionSecret, "session-secret", "", "Session signing secret (prefer env)")
	flags.StringVar(&cfg.CronSecret, "cron-secret", "", "Bearer secret for the cron endpoint (prefer env)")

	flags.StringVar(&cfg.RoutePolicyPath, "policy", "", "Route policy YAML file")
	flags.DurationVar(&cfg.OfferTTL, "offer-ttl", 0, "Default offer lifetime")
	flags.DurationVar(&cfg.SweepInterval, "sweep-interval", 0, "In-process expiry sweep interval (0 disables)")
	flags.StringVar(&cfg.EnvFile, "env", "", "Env file to load")
	flags.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated frontend origins allowed to send credentials")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if cfg.EnvFile == "" {
		cfg.EnvFile = os.Getenv("ENV_FILE")
		if cfg.EnvFile == "" {
			cfg.EnvFile = ".env"
		}
	}
	if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", cfg.EnvFile, err)
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType != "sqlite" {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = DefaultSQLiteURL
	}

	// Session secret - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	// An empty cron secret leaves the cron endpoint permanently unauthorized
	if cfg.CronSecret == "" {
		cfg.CronSecret = os.Getenv("CRON_SECRET")
	}

	if cfg.RoutePolicyPath == "" {
		cfg.RoutePolicyPath = os.Getenv("ROUTE_POLICY")
	}

	if !set["offer-ttl"] {
		d, err := durationEnv("OFFER_TTL", DefaultOfferTTL)
		if err != nil {
			return Config{}, err
		}
		cfg.OfferTTL = d
	}
	if cfg.OfferTTL <= 0 {
		return Config{}, errors.New("offer TTL must be positive")
	}

	if !set["sweep-interval"] {
		d, err := durationEnv("SWEEP_INTERVAL", 0)
		if err != nil {
			return Config{}, err
		}
		cfg.SweepInterval = d
	}
	if cfg.SweepInterval < 0 {
		return Config{}, errors.New("sweep interval must not be negative")
	}

	// No listed origins means no cross-origin access at all
	if corsOrigins == "" {
		corsOrigins = os.Getenv("CORS_ORIGINS")
	}
	cfg.CORSOrigins = splitList(corsOrigins)

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return d, nil
}
