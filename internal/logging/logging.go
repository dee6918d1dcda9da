// Package logging sets up the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a level name to a slog level. Unknown names are an error.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log level %q", name)
	}
	return l, nil
}

// Setup installs a default logger writing text to w at level. When file is
// set, records at debug and above are also appended to it as JSON. The
// returned close function releases the file.
func Setup(w io.Writer, level slog.Level, file string) (func() error, error) {
	console := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if file == "" {
		slog.SetDefault(slog.New(console))
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slogmulti.Fanout(
		console,
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With(slog.Int("pid", os.Getpid())))
	return f.Close, nil
}
