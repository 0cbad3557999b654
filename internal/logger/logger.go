// Package logger provides structured logging for topicbind.
// It configures the global slog logger with either a JSON handler for
// non-interactive environments or a colored console handler for the CLI.
package logger

import (
	"log/slog"
	"os"

	"github.com/topicbind/topicbind/internal/constants"
)

// Initialize sets up the global slog logger based on the environment
func Initialize(env constants.Environment, level slog.Level) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if env == constants.Production {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		// Use colored handler for local/CLI environments
		handler = NewConsoleHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("logger initialized", "env", env, "level", level)

	return logger
}
