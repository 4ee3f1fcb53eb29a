// Package runlog provides the append-only deployment log. Every run
// appends structured entries to deploy.log in the config directory so
// past runs remain auditable. Setting LATTICE_DEBUG=true mirrors
// entries to stderr at debug level.
package runlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DebugEnvVar enables the stderr mirror when set to "true".
const DebugEnvVar = "LATTICE_DEBUG"

// Logger wraps a *slog.Logger together with the file it appends to.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Open appends to the run log at path, creating it (and its directory)
// if needed. The file handler records everything from debug up; the
// stderr mirror is only attached when LATTICE_DEBUG=true.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	if os.Getenv(DebugEnvVar) == "true" {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return &Logger{
		Logger: slog.New(newFanoutHandler(handlers...)),
		file:   file,
	}, nil
}

// Close releases the underlying log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Nop returns a logger that discards everything. Used by tests and by
// code paths that run before the config directory exists.
func Nop() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

// fanoutHandler forwards records to every wrapped handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, record.Level) {
			continue
		}
		if err := hh.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		wrapped[i] = hh.WithAttrs(attrs)
	}
	return newFanoutHandler(wrapped...)
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	wrapped := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		wrapped[i] = hh.WithGroup(name)
	}
	return newFanoutHandler(wrapped...)
}
