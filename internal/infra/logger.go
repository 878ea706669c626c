package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger: JSON lines on stdout and in a rotated file under
// cfg.Logging.Dir. Every record carries the app name and version.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Logging.Level)}

	var writer io.Writer = os.Stdout
	if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
		// stdout only; the file sink is best effort
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Warn("Log directory unavailable",
			slog.String("dir", cfg.Logging.Dir),
			slog.Any("error", err),
		)
	} else {
		writer = io.MultiWriter(os.Stdout, newRotator(cfg))
	}

	return slog.New(slog.NewJSONHandler(writer, opts)).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
	)
}

// newRotator returns the rotating file sink. Sizes are in megabytes, ages in days.
func newRotator(cfg *Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logging.Dir, cfg.Logging.File),
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress, // gzip rotated files
	}
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
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
