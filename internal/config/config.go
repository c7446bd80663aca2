package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"MerchantPortal"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	JWTSecret       string        `env:"JWT_SECRET"`
	RefreshSecret   string        `env:"REFRESH_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	SiteURL           string `env:"SITE_URL" envDefault:"http://localhost:8080"`
	ConfirmPath       string `env:"CONFIRM_PATH" envDefault:"/auth/callback"`
	AutoConfirm       bool   `env:"AUTH_AUTO_CONFIRM" envDefault:"false"`
	MinPasswordLength int    `env:"AUTH_MIN_PASSWORD_LENGTH" envDefault:"6"`
	LoginPerMinute    int    `env:"AUTH_LOGIN_PER_MINUTE" envDefault:"5"`

	ReconcileDelay       time.Duration `env:"ONBOARDING_RECONCILE_DELAY" envDefault:"1s"`
	ReconcileMaxAttempts int           `env:"ONBOARDING_MAX_ATTEMPTS" envDefault:"3"`

	StoragePrefix string `env:"CLIENT_STORAGE_PREFIX" envDefault:"merchant_portal:client:"`
	InboxSize     int    `env:"NOTIFICATION_INBOX_SIZE" envDefault:"50"`
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from the process environment and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if !c.IsDev() {
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv))
		}
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv))
		}
		if c.JWTSecret == "" || c.RefreshSecret == "" {
			errs = append(errs, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set when APP_ENV=%s", c.AppEnv))
		}
	}
	if _, err := url.ParseRequestURI(c.SiteURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid SITE_URL: %w", err))
	}
	if !strings.HasPrefix(c.ConfirmPath, "/") {
		errs = append(errs, fmt.Errorf("CONFIRM_PATH must start with /"))
	}
	if c.ReconcileDelay <= 0 {
		errs = append(errs, fmt.Errorf("ONBOARDING_RECONCILE_DELAY must be positive"))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the app runs in a local development mode, where
// Postgres and Redis fall back to in-memory stores.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// ConfirmRedirectURL is where confirmation emails send the user back to.
func (c Config) ConfirmRedirectURL() string {
	return strings.TrimRight(c.SiteURL, "/") + c.ConfirmPath
}

// Secrets returns the token secrets, substituting fixed development values
// when they are unset in development.
func (c Config) Secrets() (access, refresh string) {
	access, refresh = c.JWTSecret, c.RefreshSecret
	if c.IsDev() {
		if access == "" {
			access = "dev-access-secret"
		}
		if refresh == "" {
			refresh = "dev-refresh-secret"
		}
	}
	return access, refresh
}
