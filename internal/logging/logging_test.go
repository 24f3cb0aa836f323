package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpggio/tranche/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "account", "0xa1")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "account=0xa1")
}

func TestNew_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tranche.log")
	logger, closer, err := New(config.LogConfig{Level: "debug", Path: path, MaxSizeMB: 1}, os.Stderr)
	require.NoError(t, err)

	logger.Debug("grant created", "grant_id", "g1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "grant_id=g1")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
