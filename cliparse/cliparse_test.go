// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable ParseFlags reads for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATABASE_URL", "DATABASE_TYPE", "SESSION_SECRET", "CRON_SECRET",
		"ROUTE_POLICY", "OFFER_TTL", "SWEEP_INTERVAL", "CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("SESSION_SECRET", "test-session")
	t.Setenv("CRON_SECRET", "test-cron")
	t.Setenv("OFFER_TTL", "2h")
	t.Setenv("SWEEP_INTERVAL", "1m")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %q", cfg.DatabaseType)
	}
	if cfg.CronSecret != "test-cron" {
		t.Errorf("expected cron secret from env, got %q", cfg.CronSecret)
	}
	if cfg.OfferTTL != 2*time.Hour {
		t.Errorf("expected 2h offer TTL, got %v", cfg.OfferTTL)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("expected 1m sweep interval, got %v", cfg.SweepInterval)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SWEEP_INTERVAL", "1m")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-session-secret", "s1", "-sweep-interval", "0"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.SweepInterval != 0 {
		t.Errorf("explicit -sweep-interval 0 should disable the sweep, got %v", cfg.SweepInterval)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "s")

	cfg, err := ParseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" || cfg.DatabaseURL != DefaultSQLiteURL {
		t.Errorf("expected sqlite default database, got %s %s", cfg.DatabaseType, cfg.DatabaseURL)
	}
	if cfg.OfferTTL != DefaultOfferTTL {
		t.Errorf("expected default offer TTL, got %v", cfg.OfferTTL)
	}
	if cfg.SweepInterval != 0 {
		t.Errorf("in-process sweep should be off by default, got %v", cfg.SweepInterval)
	}
	if cfg.CronSecret != "" {
		t.Errorf("cron secret should default to empty, got %q", cfg.CronSecret)
	}
}

func TestParseFlags_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	content := "SESSION_SECRET=from-file\nCRON_SECRET=cron-from-file\nPORT=7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv.Load skips variables that are present, even when empty
	os.Unsetenv("PORT")
	os.Unsetenv("SESSION_SECRET")
	os.Unsetenv("CRON_SECRET")
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("SESSION_SECRET")
		os.Unsetenv("CRON_SECRET")
	})

	cfg, err := ParseFlags([]string{"-env", path})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SessionSecret != "from-file" {
		t.Errorf("expected session secret from env file, got %q", cfg.SessionSecret)
	}
	if cfg.CronSecret != "cron-from-file" {
		t.Errorf("expected cron secret from env file, got %q", cfg.CronSecret)
	}
	if cfg.Port != 7000 {
		t.Errorf("expected port from env file, got %d", cfg.Port)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing session secret", nil, nil},
		{"bad port", map[string]string{"SESSION_SECRET": "s", "PORT": "abc"}, nil},
		{"postgres without url", map[string]string{"SESSION_SECRET": "s", "DATABASE_TYPE": "postgres"}, nil},
		{"unknown database type", map[string]string{"SESSION_SECRET": "s"}, []string{"-t", "mysql"}},
		{"bad offer ttl", map[string]string{"SESSION_SECRET": "s", "OFFER_TTL": "soon"}, nil},
		{"non-positive offer ttl", map[string]string{"SESSION_SECRET": "s"}, []string{"-offer-ttl", "0s"}},
		{"negative sweep interval", map[string]string{"SESSION_SECRET": "s", "SWEEP_INTERVAL": "-5s"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseFlags_CORSOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CORS_ORIGINS", " http://localhost:5173, ,https://app.example.com ")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "http://localhost:5173" || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Errorf("unexpected origins from env: %q", cfg.CORSOrigins)
	}

	cfg, err = ParseFlags([]string{"-cors-origins", "https://ops.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://ops.example.com" {
		t.Errorf("expected flag to override env, got %q", cfg.CORSOrigins)
	}

	t.Setenv("CORS_ORIGINS", "")
	cfg, err = ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Errorf("expected no origins by default, got %q", cfg.CORSOrigins)
	}
}
