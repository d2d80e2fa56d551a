// Package logging provides the structured logger used by segcoll's host-side packages.
//
// Engines never log; the processor, provisioning and snapshot packages do.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with segcoll field names.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewJSON creates a Logger that writes JSON records to stderr.
func NewJSON(level slog.Level) *Logger {
	return New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewText creates a Logger that writes human-readable records to stderr.
func NewText(level slog.Level) *Logger {
	return New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithCollection tags records with a collection name. The snapshot package tags every
// record of a transfer this way.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{Logger: l.Logger.With("collection", name)}
}

// WithKind tags records with a collection kind. The processor tags every operation and
// lifecycle record this way.
func (l *Logger) WithKind(kind string) *Logger {
	return &Logger{Logger: l.Logger.With("kind", kind)}
}

// LogOp logs the outcome of one collection operation: Debug on success, Error on failure.
func (l *Logger) LogOp(ctx context.Context, op string, err error, attrs ...any) {
	args := append([]any{"op", op}, attrs...)
	if err != nil {
		l.ErrorContext(ctx, "operation failed", append(args, "error", err)...)
		return
	}

	l.DebugContext(ctx, "operation completed", args...)
}

// LogLifecycle logs collection creation and deletion at Info.
func (l *Logger) LogLifecycle(ctx context.Context, event string, segments int, bytes uint64) {
	l.InfoContext(ctx, event,
		"segments", segments,
		"bytes", bytes,
	)
}

// LogSnapshot logs a completed or failed snapshot transfer.
func (l *Logger) LogSnapshot(ctx context.Context, event string, version uint64, segments int, err error) {
	if err != nil {
		l.ErrorContext(ctx, event+" failed",
			"version", version,
			"error", err,
		)

		return
	}

	l.InfoContext(ctx, event+" completed",
		"version", version,
		"segments", segments,
	)
}
