// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Storage
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)
	RedisURL    string // Optional baseline cache (in-process cache if not set)

	// Risk scoring defaults (admin-tunable at runtime, these seed the policy store)
	SilentAuthThreshold float64
	DeviceWeight        float64
	TLSWeight           float64
	BehavioralWeight    float64
	StepUpMethod        string // "otp" | "biometric" | "security_question"
	AlertThreshold      float64

	// Sub-score fetch timeout for the composite engine
	ScoreTimeoutMs int

	// Security
	AdminSecret  string // X-Admin-Secret for admin/settings routes
	RateLimitRPS int

	// Observability
	OTLPEndpoint string // OTEL_EXPORTER_OTLP_ENDPOINT; tracing disabled if empty
}

// Defaults
const (
	DefaultPort                = "8080"
	DefaultEnv                 = "development"
	DefaultLogLevel            = "info"
	DefaultSilentAuthThreshold = 0.75
	DefaultDeviceWeight        = 0.35
	DefaultTLSWeight           = 0.25
	DefaultBehavioralWeight    = 0.40
	DefaultStepUpMethod        = "otp"
	DefaultAlertThreshold      = 0.45
	DefaultScoreTimeoutMs      = 3000
	DefaultRateLimit           = 100
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RedisURL:            os.Getenv("REDIS_URL"),    // Optional baseline cache
		SilentAuthThreshold: getEnvFloat("SILENT_AUTH_THRESHOLD", DefaultSilentAuthThreshold),
		DeviceWeight:        getEnvFloat("DEVICE_WEIGHT", DefaultDeviceWeight),
		TLSWeight:           getEnvFloat("TLS_WEIGHT", DefaultTLSWeight),
		BehavioralWeight:    getEnvFloat("BEHAVIORAL_WEIGHT", DefaultBehavioralWeight),
		StepUpMethod:        getEnv("STEP_UP_METHOD", DefaultStepUpMethod),
		AlertThreshold:      getEnvFloat("ALERT_THRESHOLD", DefaultAlertThreshold),
		ScoreTimeoutMs:      int(getEnvInt64("SCORE_TIMEOUT_MS", DefaultScoreTimeoutMs)),
		AdminSecret:         os.Getenv("ADMIN_SECRET"),
		RateLimitRPS:        int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	for name, w := range map[string]float64{
		"SILENT_AUTH_THRESHOLD": c.SilentAuthThreshold,
		"DEVICE_WEIGHT":         c.DeviceWeight,
		"TLS_WEIGHT":            c.TLSWeight,
		"BEHAVIORAL_WEIGHT":     c.BehavioralWeight,
		"ALERT_THRESHOLD":       c.AlertThreshold,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, w)
		}
	}

	switch c.StepUpMethod {
	case "otp", "biometric", "security_question":
	default:
		return fmt.Errorf("STEP_UP_METHOD must be otp, biometric, or security_question")
	}

	if c.ScoreTimeoutMs <= 0 {
		return fmt.Errorf("SCORE_TIMEOUT_MS must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
