// Package config loads and validates environment variables at startup.
// Fail-fast: a missing required variable or a malformed value is an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the lifecycle service.
type Config struct {
	HTTPPort string
	GRPCPort string
	LogLevel string

	DatabaseURL        string
	DBMaxConns         int
	DBStatementTimeout time.Duration

	RedisURL string

	// Optional integrations; empty disables them.
	NATSURL            string
	ClickHouseDSN      string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string
	OTelCollectorURL   string

	NotifyQueueSize   int
	NotifyTimeout     time.Duration
	ReconcileSchedule string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg := &Config{
		HTTPPort:           getEnvString("HTTP_PORT", "8083"),
		GRPCPort:           getEnvString("GRPC_PORT", "9093"),
		LogLevel:           getEnvString("LOG_LEVEL", "info"),
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		NATSURL:            os.Getenv("NATS_URL"),
		ClickHouseDSN:      os.Getenv("CLICKHOUSE_DSN"),
		ClickHouseDatabase: getEnvString("CLICKHOUSE_DATABASE", "portal"),
		ClickHouseUsername: getEnvString("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),
		OTelCollectorURL:   os.Getenv("OTEL_COLLECTOR_URL"),
		ReconcileSchedule:  getEnvString("RECONCILE_SCHEDULE", "@every 1h"),
	}

	var err error
	if cfg.DBMaxConns, err = getEnvInt("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.DBStatementTimeout, err = getEnvDuration("DB_STATEMENT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotifyQueueSize, err = getEnvInt("NOTIFY_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, value)
	}
	return d, nil
}
