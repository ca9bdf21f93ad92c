package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New constructs a logger for one of the service binaries. LOG_LEVEL picks the
// level and LOG_FORMAT=json switches to the JSON handler.
func New(service string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// NewWithWriter is New with explicit output and settings.
func NewWithWriter(w io.Writer, service, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", service)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
