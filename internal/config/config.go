package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "WalletLedger"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultSyncThreshold    = 500
	defaultMaxRecords       = 50_000
	defaultBatchSize        = 500
	defaultBatchDelay       = 5 * time.Millisecond
	defaultSerializeTimeout = 2 * time.Minute
	defaultExportRetention  = 24 * time.Hour
	defaultSweepInterval    = 10 * time.Minute
	defaultExportWorkers    = 2
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Export pipeline knobs.
	ExportSyncThreshold    int64
	ExportMaxRecords       int64
	ExportBatchSize        int
	ExportBatchDelay       time.Duration
	ExportSerializeTimeout time.Duration
	ExportRetention        time.Duration
	ExportSweepInterval    time.Duration
	ExportWorkers          int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:                getEnv("APP_NAME", defaultAppName),
		AppEnv:                 getEnv("APP_ENV", defaultAppEnv),
		Port:                   getEnv("PORT", defaultPort),
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		ShutdownPeriod:         defaultShutdownDelay,
		IdempotencyTTL:         defaultIdempotencyTTL,
		ExportSyncThreshold:    defaultSyncThreshold,
		ExportMaxRecords:       defaultMaxRecords,
		ExportBatchSize:        defaultBatchSize,
		ExportBatchDelay:       defaultBatchDelay,
		ExportSerializeTimeout: defaultSerializeTimeout,
		ExportRetention:        defaultExportRetention,
		ExportSweepInterval:    defaultSweepInterval,
		ExportWorkers:          defaultExportWorkers,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ExportSyncThreshold, err = int64Env("EXPORT_SYNC_THRESHOLD", cfg.ExportSyncThreshold); err != nil {
		return Config{}, err
	}
	if cfg.ExportMaxRecords, err = int64Env("EXPORT_MAX_RECORDS", cfg.ExportMaxRecords); err != nil {
		return Config{}, err
	}
	if cfg.ExportBatchSize, err = intEnv("EXPORT_BATCH_SIZE", cfg.ExportBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.ExportBatchDelay, err = durationEnv("EXPORT_BATCH_DELAY", cfg.ExportBatchDelay); err != nil {
		return Config{}, err
	}
	if cfg.ExportSerializeTimeout, err = durationEnv("EXPORT_SERIALIZE_TIMEOUT", cfg.ExportSerializeTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ExportRetention, err = durationEnv("EXPORT_RETENTION", cfg.ExportRetention); err != nil {
		return Config{}, err
	}
	if cfg.ExportSweepInterval, err = durationEnv("EXPORT_SWEEP_INTERVAL", cfg.ExportSweepInterval); err != nil {
		return Config{}, err
	}
	if cfg.ExportWorkers, err = intEnv("EXPORT_WORKERS", cfg.ExportWorkers); err != nil {
		return Config{}, err
	}

	if cfg.ExportSyncThreshold > cfg.ExportMaxRecords {
		return Config{}, fmt.Errorf("EXPORT_SYNC_THRESHOLD (%d) must not exceed EXPORT_MAX_RECORDS (%d)",
			cfg.ExportSyncThreshold, cfg.ExportMaxRecords)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment, where
// missing backing stores fall back to in-memory implementations.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
