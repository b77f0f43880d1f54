// Package logging provides the process-wide structured logger.
//
// The loader emits two kinds of output: operator notices ([OK]/[SKIP] lines
// per partition step) and progress/diagnostic lines (per-batch rates, COPY
// failures). Both go through a single zap logger so that redirecting or
// machine-parsing the output stays trivial.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger = zap.NewNop()
	once   sync.Once
)

// Config controls logger construction.
type Config struct {
	// Debug enables debug-level output and development-style encoding.
	Debug bool
	// Encoding selects "console" (default) or "json".
	Encoding string
}

// Init builds the global logger. It is safe to call more than once; only the
// first call takes effect.
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		global, err = newLogger(cfg)
	})
	return err
}

func newLogger(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "console"
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapCfg.Build()
}

// L returns the global logger. Before Init it returns a nop logger, so
// library code may log unconditionally.
func L() *zap.Logger { return global }

// Sync flushes buffered log entries. Errors from syncing stderr are ignored.
func Sync() { _ = global.Sync() }
