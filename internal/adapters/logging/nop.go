// Package logging provides ports.Logger implementations: a console logger
// with text and JSON output, and a no-op logger.
package logging

import (
	"context"

	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// NopLogger discards all messages.
type NopLogger struct {
	level ports.Level
}

// NewNopLogger creates a new no-op logger.
func NewNopLogger() *NopLogger {
	return &NopLogger{level: ports.LevelInfo}
}

// Debug does nothing.
func (l *NopLogger) Debug(_ context.Context, _ string, _ ...ports.Field) {}

// Info does nothing.
func (l *NopLogger) Info(_ context.Context, _ string, _ ...ports.Field) {}

// Warn does nothing.
func (l *NopLogger) Warn(_ context.Context, _ string, _ ...ports.Field) {}

// Error does nothing.
func (l *NopLogger) Error(_ context.Context, _ string, _ ...ports.Field) {}

// With returns itself.
func (l *NopLogger) With(_ ...ports.Field) ports.Logger {
	return l
}

// Level returns the log level.
func (l *NopLogger) Level() ports.Level {
	return l.level
}

// SetLevel sets the log level.
func (l *NopLogger) SetLevel(level ports.Level) {
	l.level = level
}

// OrNop returns logger, or a NopLogger when logger is nil.
func OrNop(logger ports.Logger) ports.Logger {
	if logger == nil {
		return NewNopLogger()
	}
	return logger
}

var _ ports.Logger = (*NopLogger)(nil)
