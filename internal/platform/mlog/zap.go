package mlog

import "go.uber.org/zap"

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface.
type ZapLogger struct {
	S *zap.SugaredLogger
}

// NewZapLogger builds a production zap logger wrapped as a Logger.
func NewZapLogger(level string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()

	lvl, err := zap.ParseAtomicLevel(level)
	if err == nil {
		cfg.Level = lvl
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{S: base.Sugar()}, nil
}

func (l *ZapLogger) Info(args ...any)                  { l.S.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.S.Infof(format, args...) }
func (l *ZapLogger) Error(args ...any)                 { l.S.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.S.Errorf(format, args...) }
func (l *ZapLogger) Warn(args ...any)                  { l.S.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.S.Warnf(format, args...) }
func (l *ZapLogger) Debug(args ...any)                 { l.S.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any) { l.S.Debugf(format, args...) }
func (l *ZapLogger) Sync() error                       { return l.S.Sync() }

func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{S: l.S.With(fields...)}
}
