// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process-wide logger. It defaults to a no-op logger so library
// code can log before InitLogger runs (e.g. in tests).
var L = zap.NewNop()

var initOnce sync.Once

// InitLogger builds the global logger once at startup. Verbosity maps the
// CLI's -v count onto zap levels.
func InitLogger(verbosity int) {
	initOnce.Do(func() {
		logger, err := New(verbosity)
		if err != nil {
			// Nothing sensible to do without a logger.
			panic(fmt.Sprintf("init logger: %v", err))
		}
		L = logger
	})
}

// New builds a zap.Logger writing human-readable output to stderr.
func New(verbosity int) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(levelFor(verbosity))
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func levelFor(verbosity int) zapcore.Level {
	if verbosity > 0 {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
