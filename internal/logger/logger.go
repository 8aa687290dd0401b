package logger

import (
	"log/slog"
	"os"
	"strings"
)

var ProgramLevel = new(slog.LevelVar)

// SetupLogger installs a JSON logger on stdout whose level follows ProgramLevel.
func SetupLogger() {
	ProgramLevel.Set(slog.LevelInfo)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     ProgramLevel,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func SetLevel(level slog.Level) {
	if ProgramLevel.Level() != level {
		slog.Info("Changing log level", "from", ProgramLevel.Level().String(), "to", level.String())
	}
	ProgramLevel.Set(level)
}

// ParseLevel maps debug, info, warn|warning and error to a slog.Level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
