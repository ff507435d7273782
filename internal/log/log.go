// Package log holds the process-wide zap logger.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

// Init builds the logger. Debug mode logs at debug level in console format;
// otherwise entries are JSON at info level with ISO8601 timestamps.
func Init(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	set(l)
	return nil
}

func set(l *zap.Logger) {
	base = l
	sugar = l.Sugar()
}

// current falls back to a production logger when Init was never called
func current() *zap.SugaredLogger {
	if sugar == nil {
		l, _ := zap.NewProduction(zap.AddCallerSkip(1))
		set(l)
	}
	return sugar
}

// GetZapLogger returns the unsugared logger for libraries that want one (GORM)
func GetZapLogger() *zap.Logger {
	current()
	return base.WithOptions(zap.AddCallerSkip(-1))
}

// GetSugaredLogger returns a logger for components; calls report their own caller
func GetSugaredLogger() *zap.SugaredLogger {
	current()
	return base.WithOptions(zap.AddCallerSkip(-1)).Sugar()
}

// Sync flushes buffered entries
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}

func Info(args ...interface{}) {
	current().Info(args...)
}

func Warnf(template string, args ...interface{}) {
	current().Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	current().Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...interface{}) {
	current().Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	current().Errorw(msg, keysAndValues...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	current().Debugw(msg, keysAndValues...)
}
