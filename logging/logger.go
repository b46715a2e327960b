// Package logging provides structured logging utilities.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/robbie-likescodes/Tip-Calculator/config"
)

// New creates a structured logger based on config, writing to w.
func New(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// NewWithSystem creates a logger with a system prefix (e.g. "api", "engine").
func NewWithSystem(cfg config.LoggingConfig, w io.Writer, system string) *slog.Logger {
	return New(cfg, w).With("system", system)
}

// ParseLevel maps a level name to slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
