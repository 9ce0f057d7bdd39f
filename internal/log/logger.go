// Package log sets up the process-wide slog logger and provides
// component-scoped loggers plus the field names shared across packages.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler on stdout as the default logger and
// returns it. Level accepts debug, info, warn and error; anything else
// falls back to info.
func Setup(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a LOG_LEVEL string to a slog level.
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

// NewLogger returns the default logger scoped to a component.
func NewLogger(component string) *slog.Logger {
	return slog.Default().With(FieldComponent, component)
}
