package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger. Text output keeps development logs
// readable; the handler can be swapped for JSON without touching callers.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
