// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	Addr           string
	AllowedOrigins []string

	// Storage
	DBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Bearer token secret shared with the messaging gateway. Empty disables auth.
	GatewayJWTSecret string
	// PublicBillStatus serves /api/bills without a secret. Off by default.
	PublicBillStatus bool

	// AI backend. Without an API key the heuristic extractor is used.
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	// Conversation
	SessionTimeout time.Duration
	MaxRetries     int

	// Payments
	ConfirmationLookback time.Duration
	PayeeVPA             string
	PayeeName            string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getEnvDefault("ADDR", ":8080"),
		AllowedOrigins:   splitList(getEnvDefault("ALLOWED_ORIGINS", "*")),
		DBPath:           getEnvDefault("DB_PATH", "./data/powersplit.db"),
		LogLevel:         getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvDefault("LOG_FORMAT", "text"),
		GatewayJWTSecret: os.Getenv("GATEWAY_JWT_SECRET"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		PayeeVPA:         os.Getenv("PAYEE_VPA"),
		PayeeName:        os.Getenv("PAYEE_NAME"),
	}

	var err error
	if cfg.SessionTimeout, err = durationEnv("SESSION_TIMEOUT", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ConfirmationLookback, err = durationEnv("CONFIRMATION_LOOKBACK", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intEnv("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.PublicBillStatus, err = boolEnv("PUBLIC_BILL_STATUS", false); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func boolEnv(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
