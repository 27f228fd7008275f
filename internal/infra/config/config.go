package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPIDFile   = "/var/run/kolibri/server.pid"
	DefaultHTTPAddr  = ":8080"
	DefaultCacheTTL  = 60 * time.Second
	DefaultCacheSize = 1024
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL      string
	LogLevel         string
	Environment      string
	HTTPAddr         string
	PIDFile          string
	ProfilerInterval int // Seconds, 0 disables the background profiler
	CacheTTL         time.Duration
	CacheSize        int
	TelegramToken    string // Optional, enables the coach relay together with CoachTelegramID
	CoachTelegramID  int64
}

// CoachRelayEnabled reports whether notifications should be forwarded to Telegram.
func (c *AppConfig) CoachRelayEnabled() bool {
	return c.TelegramToken != "" && c.CoachTelegramID != 0
}

// Load reads configuration from environment variables and .env file (if present).
// DATABASE_URL is only enforced when requireDatabase is set; the profiler
// runs without a database and reports placeholders instead.
func Load(requireDatabase bool) (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && requireDatabase {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	cfg.PIDFile = os.Getenv("NOTIFIER_PID_FILE")
	if cfg.PIDFile == "" {
		cfg.PIDFile = DefaultPIDFile
	}

	if v := os.Getenv("PROFILER_INTERVAL"); v != "" {
		cfg.ProfilerInterval, err = strconv.Atoi(v)
		if err != nil || cfg.ProfilerInterval < 0 {
			return nil, fmt.Errorf("invalid PROFILER_INTERVAL %q: must be a non-negative number of seconds", v)
		}
	}

	cfg.CacheTTL = DefaultCacheTTL
	if v := os.Getenv("NOTIFIER_CACHE_TTL"); v != "" {
		cfg.CacheTTL, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NOTIFIER_CACHE_TTL: %w", err)
		}
	}

	cfg.CacheSize = DefaultCacheSize
	if v := os.Getenv("NOTIFIER_CACHE_SIZE"); v != "" {
		cfg.CacheSize, err = strconv.Atoi(v)
		if err != nil || cfg.CacheSize <= 0 {
			return nil, fmt.Errorf("invalid NOTIFIER_CACHE_SIZE %q: must be a positive integer", v)
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if v := os.Getenv("COACH_TELEGRAM_ID"); v != "" {
		cfg.CoachTelegramID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid COACH_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}
