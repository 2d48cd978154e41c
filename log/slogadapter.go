package log

import (
	"context"
	"log/slog"
)

// slogLogger adapts a *slog.Logger to Logger, wrapping the standard
// structured-logging package behind this module's narrow interface.
type slogLogger struct {
	l *slog.Logger
}

// FromSlog wraps l as a Logger. A nil l wraps slog.Default().
func FromSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func (s slogLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	s.l.DebugContext(ctx, msg, keyvals...)
}

func (s slogLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	s.l.InfoContext(ctx, msg, keyvals...)
}

func (s slogLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	s.l.WarnContext(ctx, msg, keyvals...)
}

func (s slogLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	s.l.ErrorContext(ctx, msg, keyvals...)
}
