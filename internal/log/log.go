// Package log provides the process logger behind a small interface so the
// decompressor core never depends on a concrete logging backend.
package log

import (
	"sync"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
}

var (
	mu     sync.Mutex
	logger Logger
)

// Init configures the process logger. The first call wins; later calls are
// ignored so libraries cannot reconfigure the binary's logging.
func Init(cfg *Config) error {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		return nil
	}
	l, err := newLogrusAdapter(cfg)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// GetLogger returns the process logger, initialising it with defaults when
// Init was never called.
func GetLogger() Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		l, err := newLogrusAdapter(DefaultConfig())
		if err != nil {
			panic(err)
		}
		logger = l
	}
	return logger
}
