// Package logger provides structured logging built on log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Level represents the minimum level a logger will emit.
type Level slog.Level

// Log levels.
const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// LoggerInterface is the logging contract used throughout the application.
// All methods accept a context for trace correlation and alternating
// key/value pairs, slog style.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) LoggerInterface
}

// Logger implements LoggerInterface on top of slog.
type Logger struct {
	handler *slog.Logger
}

// Ensure interface compliance.
var _ LoggerInterface = (*Logger)(nil)

// New creates a Logger writing JSON records to w at the given level.
// service is attached to every record; extra attributes may be passed
// as alternating key/value pairs.
func New(w io.Writer, level Level, service string, attrs []any) *Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: slog.Level(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	h := slog.New(slog.NewJSONHandler(w, opts))
	if service != "" {
		h = h.With("service", service)
	}
	if len(attrs) > 0 {
		h = h.With(attrs...)
	}

	return &Logger{handler: h}
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.handler.DebugContext(ctx, msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.handler.InfoContext(ctx, msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.handler.WarnContext(ctx, msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.handler.ErrorContext(ctx, msg, args...)
}

// With returns a logger that includes the given attributes on every record.
func (l *Logger) With(args ...any) LoggerInterface {
	return &Logger{handler: l.handler.With(args...)}
}

// Slog exposes the underlying slog.Logger for collaborators that take
// *slog.Logger directly.
func (l *Logger) Slog() *slog.Logger {
	return l.handler
}
