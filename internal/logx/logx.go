// Package logx defines the structured logging contract shared by toolsmith's
// internal packages.
package logx

import (
	"io"
	"log/slog"
)

// Logger provides structured logging with key-value pairs.
// *slog.Logger satisfies this interface, so callers can pass one directly.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a Logger implementation that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(msg string, keysAndValues ...any) {}
func (noopLogger) Info(msg string, keysAndValues ...any)  {}
func (noopLogger) Warn(msg string, keysAndValues ...any)  {}
func (noopLogger) Error(msg string, keysAndValues ...any) {}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return noopLogger{}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// New creates a text logger writing to w. Debug output is enabled when
// verbose is set; otherwise only warnings and errors are written.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// With returns a logger that prepends keysAndValues to every call.
func With(l Logger, keysAndValues ...any) Logger {
	if sl, ok := l.(*slog.Logger); ok {
		return sl.With(keysAndValues...)
	}
	return &boundLogger{next: OrNop(l), kv: keysAndValues}
}

type boundLogger struct {
	next Logger
	kv   []any
}

func (b *boundLogger) merge(keysAndValues []any) []any {
	out := make([]any, 0, len(b.kv)+len(keysAndValues))
	out = append(out, b.kv...)
	return append(out, keysAndValues...)
}

func (b *boundLogger) Debug(msg string, keysAndValues ...any) {
	b.next.Debug(msg, b.merge(keysAndValues)...)
}

func (b *boundLogger) Info(msg string, keysAndValues ...any) {
	b.next.Info(msg, b.merge(keysAndValues)...)
}

func (b *boundLogger) Warn(msg string, keysAndValues ...any) {
	b.next.Warn(msg, b.merge(keysAndValues)...)
}

func (b *boundLogger) Error(msg string, keysAndValues ...any) {
	b.next.Error(msg, b.merge(keysAndValues)...)
}
