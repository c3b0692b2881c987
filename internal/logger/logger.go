package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps LOG_LEVEL values (DEBUG, INFO, WARN/WARNING, ERROR) to a slog level.
// Unknown values fall back to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup returns a JSON logger writing to w at the given level
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", "tijzi-backend"))
}

// SetupDefault installs the JSON logger as the process-wide default and returns it
func SetupDefault(w io.Writer, level string) *slog.Logger {
	logger := Setup(w, ParseLevel(level))
	slog.SetDefault(logger)
	return logger
}
