package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("chatty")
	require.Error(t, err)
}

func TestSetupFanout(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "oql.log")
	closeFn, err := Setup(&console, slog.LevelWarn, path)
	require.NoError(t, err)

	slog.Debug("backend request", "path", "/exec")
	slog.Warn("stage mismatch", "line", 3)
	require.NoError(t, closeFn())

	require.NotContains(t, console.String(), "backend request")
	require.Contains(t, console.String(), "stage mismatch")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "backend request", rec["msg"])
	require.Equal(t, "/exec", rec["path"])
}

func TestSetupConsoleOnly(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	closeFn, err := Setup(&console, slog.LevelInfo, "")
	require.NoError(t, err)
	slog.Info("hello")
	require.NoError(t, closeFn())
	require.Contains(t, console.String(), "msg=hello")
}
