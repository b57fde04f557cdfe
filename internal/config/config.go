package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all environment configuration. It is loaded once at startup
// and passed to constructors; nothing reads the environment after that.
type Config struct {
	Port                int
	DatabaseURL         string
	BatchSize           int
	MaxAttempts         int
	ProcessInterval     time.Duration
	SweepInterval       time.Duration
	ClaimTimeout        time.Duration
	HandlerTimeout      time.Duration
	MessageWebhookURL   string
	StatusWebhookURL    string
	LogLevel            string
	DBConnectionTimeout time.Duration
}

// helper: read env var as int seconds → convert to duration
func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(name); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	if value, exists := os.LookupEnv(name); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultVal
}

func getEnv(name, defaultVal string) string {
	if value, exists := os.LookupEnv(name); exists {
		return value
	}
	return defaultVal
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                getEnvAsInt("PORT", 8080),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		BatchSize:           getEnvAsInt("BATCH_SIZE", 10),
		MaxAttempts:         getEnvAsInt("MAX_ATTEMPTS", 3),
		ProcessInterval:     getEnvAsDuration("PROCESS_INTERVAL", 5*time.Second),
		SweepInterval:       getEnvAsDuration("SWEEP_INTERVAL", 60*time.Second),
		ClaimTimeout:        getEnvAsDuration("CLAIM_TIMEOUT", 300*time.Second),
		HandlerTimeout:      getEnvAsDuration("HANDLER_TIMEOUT", 30*time.Second),
		MessageWebhookURL:   getEnv("MESSAGE_WEBHOOK_URL", ""),
		StatusWebhookURL:    getEnv("STATUS_WEBHOOK_URL", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DBConnectionTimeout: getEnvAsDuration("DB_CONNECTION_TIMEOUT", 5*time.Second),
	}

	// Basic validation
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid BATCH_SIZE: %d", cfg.BatchSize)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid MAX_ATTEMPTS: %d", cfg.MaxAttempts)
	}
	if cfg.ClaimTimeout <= cfg.HandlerTimeout {
		return nil, fmt.Errorf("CLAIM_TIMEOUT (%s) must exceed HANDLER_TIMEOUT (%s)", cfg.ClaimTimeout, cfg.HandlerTimeout)
	}

	return cfg, nil
}
