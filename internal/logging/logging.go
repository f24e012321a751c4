// ABOUTME: Default slog logger configuration for the binaries
// ABOUTME: Selects level and destination: text to the console or JSON to a file
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Levels lists the accepted level names
var Levels = []string{"none", "error", "warn", "info", "debug"}

// Configure installs the default slog logger.
//
// Valid levels are "none", "error", "warn", "info" and "debug". With an empty
// file the logger writes text to console; otherwise it writes JSON to file,
// truncating it. The returned closer, when non-nil, closes the log file.
func Configure(level, file string, console io.Writer) (io.Closer, error) {
	opts := slog.HandlerOptions{}

	switch level {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		opts.Level = slog.LevelError
	case "warn":
		opts.Level = slog.LevelWarn
	case "info":
		opts.Level = slog.LevelInfo
	case "debug":
		opts.Level = slog.LevelDebug
	default:
		return nil, fmt.Errorf("unexpected log level %q", level)
	}

	if file == "" {
		if console == nil {
			console = os.Stdout
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(console, &opts)))
		return nil, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &opts)))
	return f, nil
}
