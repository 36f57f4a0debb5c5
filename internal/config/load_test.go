package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 chars, minimum length

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TASKNEST_DATABASE_URL", "postgres://localhost:5432/tasknest_test")
	t.Setenv("TASKNEST_AUTH_JWT_SECRET", testSecret)
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, 120, cfg.RateLimit.GeneralMax)
	assert.Equal(t, time.Minute, cfg.RateLimit.GeneralWindow)
	assert.Equal(t, 10, cfg.RateLimit.LoginMax)
	assert.Equal(t, 587, cfg.Mail.Port)
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TASKNEST_SERVER_PORT", "9090")
	t.Setenv("TASKNEST_SERVER_LOG_LEVEL", "debug")
	t.Setenv("TASKNEST_RATE_LIMIT_LOGIN_MAX", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 3, cfg.RateLimit.LoginMax)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("TASKNEST_DATABASE_URL", "postgres://localhost:5432/tasknest_test")
	t.Setenv("TASKNEST_AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("TASKNEST_DATABASE_URL", "postgres://localhost:5432/tasknest_test")
	t.Setenv("TASKNEST_AUTH_JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TASKNEST_SERVER_LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
}
