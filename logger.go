package vemos

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vemos-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithSession adds a session name field to the logger.
func (l *Logger) WithSession(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("session", name),
	}
}

// LogResolve logs a record resolution.
func (l *Logger) LogResolve(ctx context.Context, source string, records, repairs int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "resolve failed",
			"source", source,
			"error", err,
		)
		return
	}
	if repairs > 0 {
		l.WarnContext(ctx, "resolve repaired one-sided matches",
			"source", source,
			"records", records,
			"repairs", repairs,
			"elapsed", elapsed,
		)
		return
	}
	l.InfoContext(ctx, "resolve completed",
		"source", source,
		"records", records,
		"elapsed", elapsed,
	)
}

// LogMatrixLoad logs a matrix load. skipped counts asymmetric matrices
// dropped by the symmetrize policy.
func (l *Logger) LogMatrixLoad(ctx context.Context, loaded, skipped int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "matrix load failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "matrices loaded",
		"loaded", loaded,
		"skipped", skipped,
		"elapsed", elapsed,
	)
}

// LogSymmetrize logs the repair of an asymmetric matrix.
func (l *Logger) LogSymmetrize(ctx context.Context, name, strategy string) {
	l.WarnContext(ctx, "matrix not symmetric",
		"matrix", name,
		"strategy", strategy,
	)
}

// LogIndex logs a match index rebuild.
func (l *Logger) LogIndex(ctx context.Context, matrices int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "match index failed",
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "match index built",
		"matrices", matrices,
		"elapsed", elapsed,
	)
}

// LogFuse logs a fusion run.
func (l *Logger) LogFuse(ctx context.Context, name string, pairs, dropped int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fusion failed",
			"matrix", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "fusion completed",
		"matrix", name,
		"pairs", pairs,
		"dropped", dropped,
		"elapsed", elapsed,
	)
}

// LogGenerate logs a matrix generation.
func (l *Logger) LogGenerate(ctx context.Context, name, metric string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "generation failed",
			"matrix", name,
			"metric", metric,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "matrix generated",
		"matrix", name,
		"metric", metric,
		"elapsed", elapsed,
	)
}

// LogSession logs a session operation ("save", "load", "delete").
func (l *Logger) LogSession(ctx context.Context, op, name string, version uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "session "+op+" failed",
			"session", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "session "+op+" completed",
		"session", name,
		"version", version,
	)
}
