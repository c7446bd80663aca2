package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "MerchantPortal", cfg.AppName)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, time.Second, cfg.ReconcileDelay)
	assert.Equal(t, 3, cfg.ReconcileMaxAttempts)
	assert.Equal(t, 6, cfg.MinPasswordLength)
	assert.Equal(t, "http://localhost:8080/auth/callback", cfg.ConfirmRedirectURL())

	access, refresh := cfg.Secrets()
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("PORT", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ONBOARDING_RECONCILE_DELAY", "250ms")
	t.Setenv("SITE_URL", "https://vendors.example.com/")
	t.Setenv("AUTH_AUTO_CONFIRM", "true")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconcileDelay)
	assert.True(t, cfg.AutoConfirm)
	assert.Equal(t, "https://vendors.example.com/auth/callback", cfg.ConfirmRedirectURL())
}

func TestParseRequiresBackendsOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "REDIS_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("REFRESH_SECRET", "b")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := Parse()
	require.Error(t, err)
}
