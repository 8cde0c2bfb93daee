package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/creditx/hold-service/internal/config"
)

// NewLogger creates and configures a new slog.Logger writing to stdout
func NewLogger(cfg *config.Config) *slog.Logger {
	return New(cfg, os.Stdout)
}

// New builds a logger on w. Every record carries the service name.
func New(cfg *config.Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source code location to log output
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}

	logger.Info("logger initialized", "level", level, "format", cfg.Logging.Format)

	return logger
}

// ParseLevel maps a config string onto a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
