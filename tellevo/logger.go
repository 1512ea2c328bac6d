package tellevo

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Logger is a minimal logging interface accepted by the SDK.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// noopLogger discards all logs.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// swappableLogger lets SetLogger replace the logger while timers and read
// loops are already running.
type swappableLogger struct {
	v atomic.Value // loggerBox
}

type loggerBox struct{ Logger }

func newSwappableLogger(l Logger) *swappableLogger {
	s := &swappableLogger{}
	s.set(l)
	return s
}

func (s *swappableLogger) set(l Logger) { s.v.Store(loggerBox{l}) }
func (s *swappableLogger) get() Logger  { return s.v.Load().(loggerBox).Logger }

func (s *swappableLogger) Debug(msg string, fields map[string]any) { s.get().Debug(msg, fields) }
func (s *swappableLogger) Info(msg string, fields map[string]any)  { s.get().Info(msg, fields) }
func (s *swappableLogger) Warn(msg string, fields map[string]any)  { s.get().Warn(msg, fields) }
func (s *swappableLogger) Error(msg string, fields map[string]any) { s.get().Error(msg, fields) }

// NewSlogLogger adapts a *slog.Logger to Logger. A nil logger uses
// slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debug(msg string, fields map[string]any) { s.log(slog.LevelDebug, msg, fields) }
func (s slogLogger) Info(msg string, fields map[string]any)  { s.log(slog.LevelInfo, msg, fields) }
func (s slogLogger) Warn(msg string, fields map[string]any)  { s.log(slog.LevelWarn, msg, fields) }
func (s slogLogger) Error(msg string, fields map[string]any) { s.log(slog.LevelError, msg, fields) }

func (s slogLogger) log(level slog.Level, msg string, fields map[string]any) {
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.l.LogAttrs(context.Background(), level, msg, attrs...)
}
