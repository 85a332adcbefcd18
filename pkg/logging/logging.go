// Package logging configures structured logging for the service.
// Development output is colored with tint; production output is JSON.
//
// Usage:
//
//	logging.Configure(cfg.LogLevel, cfg.LogFormat)
//
// Levels: debug, info, warn, error (default: info). Formats: text, json (default: text).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Configure installs the default logger with the given level and format.
// Unknown levels fall back to info and unknown formats to colored text.
func Configure(level, format string) {
	slog.SetDefault(New(os.Stderr, ParseLevel(level), format))
}

// New builds a logger writing to w.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}),
	)
}

// ParseLevel maps debug, warn and error to their slog levels; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskPhone hides the middle of a phone number for logging,
// keeping the country prefix and the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 7 {
		return strings.Repeat("*", len(phone))
	}
	prefix := 3
	if !strings.HasPrefix(phone, "+") {
		prefix = 2
	}
	return phone[:prefix] + strings.Repeat("*", len(phone)-prefix-4) + phone[len(phone)-4:]
}
