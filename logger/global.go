package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

//nolint:gochecknoglobals // required for the global logger singleton
var (
	global   atomic.Value // stores Logger
	initOnce sync.Once
)

// SetGlobal replaces the global logger instance.
// It should be called during application startup, before any logging
// functions are used. Calling it again reconfigures the global logger.
func SetGlobal(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	initOnce.Do(func() {})
	global.Store(l)
	return nil
}

// getGlobal returns the global logger, lazily initializing it with defaults
// when SetGlobal was never called.
func getGlobal() Logger {
	initOnce.Do(func() {
		if global.Load() == nil {
			l, err := New(Config{Level: "debug", Encoding: EncodingJSON})
			if err != nil {
				panic("[logger]: failed to initialize default global logger: " + err.Error())
			}
			global.Store(l)
		}
	})
	return global.Load().(Logger) //nolint:errcheck // always stores Logger
}

// Debug logs a message at debug level using the global logger.
func Debug(args ...any) { getGlobal().Debug(args...) }

// Info logs a message at info level using the global logger.
func Info(args ...any) { getGlobal().Info(args...) }

// Warn logs a message at warn level using the global logger.
func Warn(args ...any) { getGlobal().Warn(args...) }

// Error logs a message at error level using the global logger.
func Error(args ...any) { getGlobal().Error(args...) }

// Fatal logs a message at fatal level using the global logger and exits.
func Fatal(args ...any) { getGlobal().Fatal(args...) }

// Debugf logs a formatted message at debug level using the global logger.
func Debugf(format string, args ...any) { getGlobal().Debugf(format, args...) }

// Infof logs a formatted message at info level using the global logger.
func Infof(format string, args ...any) { getGlobal().Infof(format, args...) }

// Warnf logs a formatted message at warn level using the global logger.
func Warnf(format string, args ...any) { getGlobal().Warnf(format, args...) }

// Errorf logs a formatted message at error level using the global logger.
func Errorf(format string, args ...any) { getGlobal().Errorf(format, args...) }

// With returns the global logger extended with the given key-value pairs.
func With(keysAndValues ...any) Logger { return getGlobal().With(keysAndValues...) }

// WithContext returns the global logger enriched with context metadata.
func WithContext(ctx context.Context) Logger { return getGlobal().WithContext(ctx) }

// Named returns the global logger with a sub-scope added to its name.
func Named(name string) Logger { return getGlobal().Named(name) }
