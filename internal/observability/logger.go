package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a *slog.Logger from the log level and format strings and
// installs it as the process default.
//
// Format "json" produces structured output for shipping; anything else falls
// back to the text handler. Level is one of debug, info, warn, error
// (case-insensitive), defaulting to info. Output is always os.Stderr.
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
