package contract

import (
	"io"
	"log/slog"
)

// InitLogger installs the process-wide structured logger. Debug enables
// per-metric diagnostics; otherwise only info and above are emitted.
func InitLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
