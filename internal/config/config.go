package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SMTP holds delivery-provider settings. When Enabled is false every queued
// send fails permanently, so the flag doubles as a kill switch.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Enabled  bool
}

// Config holds all service configuration values.
type Config struct {
	HTTPPort    string
	DatabaseURL string
	AMQPURL     string // optional; empty disables event publishing
	Env         string // "dev" | "staging" | "prod"

	SMTP SMTP

	// Delivery queue policy.
	RateLimitInterval time.Duration // minimum spacing between two dispatches
	DailyLimit        int           // max successful sends per UTC day
	MaxRetries        int           // transient failures before a job goes failed
	SendTimeout       time.Duration // bound on one provider call
	PollInterval      time.Duration // how often the dispatcher wakes

	DailyRecsCron string // cron spec for the daily recommendations batch
}

// MustLoad loads configuration from environment variables.
// If a required variable is missing, the service exits immediately.
func MustLoad() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:    getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AMQPURL:     getEnv("AMQP_URL", ""),
		Env:         getEnv("APP_ENV", "dev"),
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
			Enabled:  getEnvBool("SMTP_ENABLED", false),
		},
		RateLimitInterval: getEnvDuration("RATE_LIMIT_SECONDS", 540*time.Second),
		DailyLimit:        getEnvInt("DAILY_EMAIL_LIMIT", 140),
		MaxRetries:        getEnvInt("MAX_RETRIES", 1),
		SendTimeout:       getEnvDuration("SEND_TIMEOUT_SECONDS", 30*time.Second),
		PollInterval:      getEnvDuration("POLL_INTERVAL_SECONDS", 30*time.Second),
		DailyRecsCron:     getEnv("DAILY_RECS_CRON", "0 8 * * *"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("missing required env: DATABASE_URL")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		log.Fatalf("invalid integer for env %s: %q", key, val)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		log.Fatalf("invalid boolean for env %s: %q", key, val)
	}
	return fallback
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		log.Fatalf("invalid duration (seconds) for env %s: %q", key, val)
	}
	return fallback
}
