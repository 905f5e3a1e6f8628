package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Options struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Format is text or json.
	Format string
	Writer io.Writer
}

var (
	baseMu sync.RWMutex
	base   = newHandlerLogger(Options{})
)

// Setup replaces the process-wide logger used when the context carries none.
func Setup(opts Options) *slog.Logger {
	logger := newHandlerLogger(opts)
	baseMu.Lock()
	base = logger
	baseMu.Unlock()
	return logger
}

func newHandlerLogger(opts Options) *slog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		return slog.New(slog.NewJSONHandler(writer, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(writer, handlerOpts))
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func baseLogger() *slog.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}
