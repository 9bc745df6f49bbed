// Package config loads server configuration from MARATHON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"marathon/internal/domain/plan"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults
const (
	DefaultAddr          = ":8080"
	DefaultBaseURL       = "http://localhost:8080"
	DefaultSQLiteDSN     = "marathon.db"
	DefaultAdminEmail    = "admin@marathon.local"
	DefaultAdminPassword = "change me before race day"
	DefaultResendFrom    = "Marathon Training <noreply@marathon.local>"
	DefaultSlowQueryMs   = 50
	DefaultSlowRequestMs = 500
	DefaultRateLimit     = 120
	DefaultAPIKeyTTL     = 30 * 24 * time.Hour
)

// Config errors
var (
	ErrMissingCSRFKey  = errors.New("MARATHON_CSRF_KEY must be set to 32 bytes in production")
	ErrInvalidDriver   = errors.New("MARATHON_DB_DRIVER must be sqlite or postgres")
	ErrMissingDSN      = errors.New("MARATHON_DB_DSN is required for postgres")
	ErrDefaultPassword = errors.New("MARATHON_ADMIN_PASSWORD must be changed in production")
	ErrTestAccounts    = errors.New("MARATHON_SEED_TEST_ACCOUNTS cannot be used in production")
)

// Config holds everything cmd/server needs to start.
type Config struct {
	Env              string
	Addr             string
	BaseURL          string // public origin used in email links and as a trusted CSRF origin
	DBDriver         string
	DBDSN            string
	LogLevel         slog.Level
	LogFormat        string
	CSRFKey          []byte
	AdminEmail       string
	AdminPassword    string
	SeasonStart      time.Time // zero means Jan 6 of the current year
	ResendKey        string
	ResendFrom       string
	CheerNotifyTo    string
	SlowQueryMs      int
	SlowRequestMs    int
	RateLimit        int // requests per minute per IP
	APIKeyTTL        time.Duration
	SeedTestAccounts bool // development only
}

// Load reads the configuration from the process environment.
// PRE: none
// POST: returns a validated Config or the first problem found
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through getenv, which makes it testable without touching the process env.
func LoadFrom(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Env:           get("MARATHON_ENV", EnvDevelopment),
		Addr:          get("MARATHON_ADDR", DefaultAddr),
		BaseURL:       strings.TrimRight(get("MARATHON_BASE_URL", DefaultBaseURL), "/"),
		DBDriver:      get("MARATHON_DB_DRIVER", DriverSQLite),
		DBDSN:         get("MARATHON_DB_DSN", ""),
		LogFormat:     get("MARATHON_LOG_FORMAT", "text"),
		CSRFKey:       []byte(get("MARATHON_CSRF_KEY", "")),
		AdminEmail:    get("MARATHON_ADMIN_EMAIL", DefaultAdminEmail),
		AdminPassword: get("MARATHON_ADMIN_PASSWORD", DefaultAdminPassword),
		ResendKey:     get("MARATHON_RESEND_KEY", ""),
		ResendFrom:    get("MARATHON_RESEND_FROM", DefaultResendFrom),
		CheerNotifyTo: get("MARATHON_CHEER_NOTIFY_TO", ""),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(get("MARATHON_LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}
	if cfg.SlowQueryMs, err = positiveInt("MARATHON_SLOW_QUERY_MS", get("MARATHON_SLOW_QUERY_MS", ""), DefaultSlowQueryMs); err != nil {
		return Config{}, err
	}
	if cfg.SlowRequestMs, err = positiveInt("MARATHON_SLOW_REQUEST_MS", get("MARATHON_SLOW_REQUEST_MS", ""), DefaultSlowRequestMs); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = positiveInt("MARATHON_RATE_LIMIT", get("MARATHON_RATE_LIMIT", ""), DefaultRateLimit); err != nil {
		return Config{}, err
	}

	if v := get("MARATHON_SEED_TEST_ACCOUNTS", ""); v != "" {
		if cfg.SeedTestAccounts, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("MARATHON_SEED_TEST_ACCOUNTS: expected true or false, got %q", v)
		}
	}

	cfg.APIKeyTTL = DefaultAPIKeyTTL
	if v := get("MARATHON_API_KEY_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("MARATHON_API_KEY_TTL: invalid duration %q", v)
		}
		cfg.APIKeyTTL = d
	}

	if v := get("MARATHON_SEASON_START", ""); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			return Config{}, fmt.Errorf("MARATHON_SEASON_START: expected YYYY-MM-DD: %w", err)
		}
		cfg.SeasonStart = t
	}

	if cfg.DBDriver == DriverSQLite && cfg.DBDSN == "" {
		cfg.DBDSN = DefaultSQLiteDSN
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules.
// PRE: Config is populated
// POST: returns nil if the server can start with this configuration
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DBDSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrInvalidDriver
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("MARATHON_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.IsProduction() {
		if len(c.CSRFKey) != 32 {
			return ErrMissingCSRFKey
		}
		if c.AdminPassword == DefaultAdminPassword {
			return ErrDefaultPassword
		}
		if c.SeedTestAccounts {
			return ErrTestAccounts
		}
	}
	return nil
}

// IsProduction reports whether the server runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SeasonStartFor returns the configured season start, or Jan 6 of now's year.
func (c Config) SeasonStartFor(now time.Time) time.Time {
	if c.SeasonStart.IsZero() {
		return plan.DefaultSeasonStart(now)
	}
	return c.SeasonStart
}

// CheerRecipients splits MARATHON_CHEER_NOTIFY_TO on commas.
func (c Config) CheerRecipients() []string {
	var out []string
	for _, addr := range strings.Split(c.CheerNotifyTo, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// NewLogger builds the process logger from the level and format settings.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("MARATHON_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

func positiveInt(key, v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: expected a positive integer, got %q", key, v)
	}
	return n, nil
}
