package main

import (
	"fmt"

	"github.com/pion/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newZapLogger builds the logger of the peer.
// Valid levels are debug, info, warn and error.
func newZapLogger(level string, development bool) (*zap.Logger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	if level != "" {
		var lvl zapcore.Level
		err := lvl.UnmarshalText([]byte(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", level)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	return config.Build()
}

// implements logging.LoggerFactory
type loggerFactory struct {
	logger *zap.Logger
}

func (f *loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &logAdapter{
		logger: f.logger.Named(scope).Sugar(),
	}
}

// implements logging.LeveledLogger.
// zap has no trace level, trace messages are written at the debug level.
type logAdapter struct {
	logger *zap.SugaredLogger
}

func (l *logAdapter) Trace(msg string) {
	l.logger.Debug(msg)
}

func (l *logAdapter) Tracef(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *logAdapter) Debug(msg string) {
	l.logger.Debug(msg)
}

func (l *logAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *logAdapter) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logAdapter) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *logAdapter) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logAdapter) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *logAdapter) Error(msg string) {
	l.logger.Error(msg)
}

func (l *logAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}
