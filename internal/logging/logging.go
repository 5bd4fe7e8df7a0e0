// Package logging builds the shared slog.Logger used across codescope's
// CLI and core packages: JSON-structured output, a configurable minimum
// level, and a configurable output writer (stderr by default).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum log level: debug, info, warn, or error.
	Level string
	// Output is where log records are written. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the logger configuration codescope's CLI uses
// outside of --debug.
func DefaultConfig() Config {
	return Config{Level: "info", Output: os.Stderr}
}

// DebugConfig returns the configuration used under --debug.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a *slog.Logger from cfg. Unlike a long-running server,
// codescope's CLI invocations are one-shot, so there is no rotation or
// background flush to clean up — the returned logger is ready to use
// immediately.
func Setup(cfg Config) *slog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return slog.New(handler)
}

// SetupDefault builds a logger with DefaultConfig and installs it as the
// process-wide default.
func SetupDefault() *slog.Logger {
	logger := Setup(DefaultConfig())
	slog.SetDefault(logger)
	return logger
}

// parseLevel converts a level string to slog.Level, defaulting to Info on
// anything unrecognized.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString exposes parseLevel for callers that need to validate a
// level string before constructing a Config.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
