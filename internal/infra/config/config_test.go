package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "LOG_LEVEL", "ENVIRONMENT", "HTTP_ADDR", "NOTIFIER_PID_FILE",
		"PROFILER_INTERVAL", "NOTIFIER_CACHE_TTL", "NOTIFIER_CACHE_SIZE", "TELEGRAM_TOKEN", "COACH_TELEGRAM_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(false)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, DefaultPIDFile, cfg.PIDFile)
	assert.Zero(t, cfg.ProfilerInterval)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.False(t, cfg.CoachRelayEnabled())
}

func TestLoadRequiresDatabase(t *testing.T) {
	clearEnv(t)

	_, err := Load(true)
	assert.EqualError(t, err, "DATABASE_URL is not set")
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://kolibri@localhost/kolibri?sslmode=disable")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("PROFILER_INTERVAL", "30")
	t.Setenv("NOTIFIER_CACHE_TTL", "0s")
	t.Setenv("NOTIFIER_CACHE_SIZE", "64")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("COACH_TELEGRAM_ID", "-100200300")

	cfg, err := Load(true)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 30, cfg.ProfilerInterval)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, int64(-100200300), cfg.CoachTelegramID)
	assert.True(t, cfg.CoachRelayEnabled())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PROFILER_INTERVAL", "-1"},
		{"PROFILER_INTERVAL", "soon"},
		{"NOTIFIER_CACHE_TTL", "60"},
		{"NOTIFIER_CACHE_SIZE", "0"},
		{"COACH_TELEGRAM_ID", "coach"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load(false)
			assert.Error(t, err)
		})
	}
}
