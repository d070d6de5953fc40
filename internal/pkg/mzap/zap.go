// Package mzap provides the zap-backed mlog.Logger used outside of tests.
package mzap

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// New builds a zap logger wrapped as an mlog.Logger.
// ENV_NAME=production selects zap's production profile (JSON encoding,
// info level); anything else selects the development profile
// (human-readable encoding, debug level). LOG_LEVEL overrides that default
// level when set to a valid zapcore.Level name.
func New() (mlog.Logger, error) {
	var cfg zap.Config

	if os.Getenv("ENV_NAME") == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if val, ok := os.LookupEnv("LOG_LEVEL"); ok {
		var lvl zapcore.Level
		if err := lvl.Set(val); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &sugaredLogger{s: logger.Sugar()}, nil
}

type sugaredLogger struct {
	s *zap.SugaredLogger
}

func (l *sugaredLogger) Info(args ...any)                  { l.s.Info(args...) }
func (l *sugaredLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *sugaredLogger) Warn(args ...any)                  { l.s.Warn(args...) }
func (l *sugaredLogger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *sugaredLogger) Error(args ...any)                 { l.s.Error(args...) }
func (l *sugaredLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *sugaredLogger) Debug(args ...any)                 { l.s.Debug(args...) }
func (l *sugaredLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }

func (l *sugaredLogger) WithFields(fields ...any) mlog.Logger {
	return &sugaredLogger{s: l.s.With(fields...)}
}

func (l *sugaredLogger) Sync() error { return l.s.Sync() }
