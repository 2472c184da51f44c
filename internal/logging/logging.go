// Package logging defines the structured-logging interface used across
// the project, backed by log/slog.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is a context-aware, structured logger. The variadic args are
// key–value pairs, e.g.:
//
//	log.Info(ctx, "mail queued", "to", addr)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New returns a Logger writing JSON lines to stderr with the given
// component attached to every record.
func New(component string) Logger {
	handler := slog.NewJSONHandler(os.Stderr, nil)
	return &slogLogger{l: slog.New(handler).With("component", component)}
}

// Wrap adapts an existing slog.Logger.
func Wrap(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

func (s *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

// Discard returns a Logger that drops everything. Used by tests.
func Discard() Logger {
	return &slogLogger{l: slog.New(slog.DiscardHandler)}
}
