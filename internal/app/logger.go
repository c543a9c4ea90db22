package app

import (
	"log/slog"
	"os"
	"strings"

	"github.com/birlikkoshan/tasksync/internal/config"
)

// NewLogger builds the process logger: text in dev, JSON elsewhere, unless
// LOG_FORMAT says otherwise.
func NewLogger(cfg config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	format := strings.ToLower(cfg.LogFormat)
	if format == "" {
		format = "json"
		if cfg.IsDev() {
			format = "text"
		}
	}
	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h).With("service", "tasksync", "version", cfg.Version)
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
