package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Text output keeps local
// runs readable; a JSON handler can be swapped in at this one site.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
