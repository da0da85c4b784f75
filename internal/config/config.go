package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	LogFormat   string

	// Submission handling
	SubmitCooldown time.Duration
	SubmitRate     float64
	SubmitBurst    int

	// WebSocket hub
	MaxClientsPerSession int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		SubmitCooldown:       5 * time.Second,
		SubmitRate:           10,
		SubmitBurst:          20,
		MaxClientsPerSession: 500,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if v := os.Getenv("SUBMIT_COOLDOWN_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 1 {
			return nil, fmt.Errorf("SUBMIT_COOLDOWN_SECONDS must be a positive integer, got %q", v)
		}
		cfg.SubmitCooldown = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("MAX_CLIENTS_PER_SESSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MAX_CLIENTS_PER_SESSION must be a positive integer, got %q", v)
		}
		cfg.MaxClientsPerSession = n
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
