// Package mlog defines the narrow logging interface the rest of the
// ledger service depends on, so that the concrete backend (zap) stays
// swappable and testable.
package mlog

// Logger is the common interface for log implementations used across
// the service. Every field that needs structured context is attached
// with WithFields rather than baked into individual call sites.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}

// NoneLogger is a no-op Logger used when no logger has been attached to
// a context, so callers never need to nil-check.
type NoneLogger struct{}

func (l *NoneLogger) Info(args ...any)                  {}
func (l *NoneLogger) Infof(format string, args ...any)  {}
func (l *NoneLogger) Error(args ...any)                 {}
func (l *NoneLogger) Errorf(format string, args ...any) {}
func (l *NoneLogger) Warn(args ...any)                  {}
func (l *NoneLogger) Warnf(format string, args ...any)  {}
func (l *NoneLogger) Debug(args ...any)                 {}
func (l *NoneLogger) Debugf(format string, args ...any) {}
func (l *NoneLogger) Sync() error                       { return nil }

func (l *NoneLogger) WithFields(fields ...any) Logger { return l }
