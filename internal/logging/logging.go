// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/tranche/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text logger writing to console, or to a rotating file
// when cfg.Path is set. The returned closer releases the file.
func New(cfg config.LogConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	var w io.Writer = console
	var closer io.Closer = nopCloser{}

	if cfg.Path != "" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		file := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		w, closer = file, file
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}))
	return logger, closer, nil
}

// ParseLevel maps debug, warn and error to their slog levels; anything
// else is info.
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
