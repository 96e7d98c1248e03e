package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stocknews/internal/config"
)

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(config.Log{Level: "warn", Format: "json"}, &buf, "stocknews-test")
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("dropped")
	logger.Warn().Str("symbol", "AAPL").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	require.Equal(t, "kept", entry["message"])
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "AAPL", entry["symbol"])
	require.Equal(t, "stocknews-test", entry["service"])
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(config.Log{Level: "loud"}, &bytes.Buffer{}, "x")
	require.ErrorContains(t, err, "invalid log level")
}

func TestNew_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, closer, err := New(config.Log{Level: "info", File: path, MaxSizeMB: 1}, &bytes.Buffer{}, "x")
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "to file")
}
