package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ADDR", "DB_PATH", "SESSION_TIMEOUT", "CONFIRMATION_LOOKBACK", "MAX_RETRIES", "ALLOWED_ORIGINS", "GATEWAY_JWT_SECRET", "PUBLIC_BILL_STATUS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.SessionTimeout != 24*time.Hour {
		t.Errorf("SessionTimeout = %s, want 24h", cfg.SessionTimeout)
	}
	if cfg.ConfirmationLookback != 30*24*time.Hour {
		t.Errorf("ConfirmationLookback = %s, want 720h", cfg.ConfirmationLookback)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
	if cfg.PublicBillStatus {
		t.Error("PublicBillStatus = true, want false by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("SESSION_TIMEOUT", "2h")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9090" || cfg.SessionTimeout != 2*time.Hour || cfg.MaxRetries != 5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SESSION_TIMEOUT", "tomorrow"},
		{"SESSION_TIMEOUT", "-1h"},
		{"CONFIRMATION_LOOKBACK", "30 days"},
		{"MAX_RETRIES", "three"},
		{"MAX_RETRIES", "0"},
		{"PUBLIC_BILL_STATUS", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q succeeded, want error", tt.key, tt.value)
			}
		})
	}
}
