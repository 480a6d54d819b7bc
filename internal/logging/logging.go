// Package logging constructs the zap.Logger instance cmd/bbsolver injects
// into the driver and coordinator, replacing the teacher's scattered
// package-level log.Printf calls (pkg/minikanren/wfs_trace.go,
// context_utils.go) with one structured logger built once at startup and
// threaded down as a field (§9 "the spec makes logging a structured
// dependency injected into the driver").
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger writing to stderr at info level, or debug level
// when verbose is true (the -v/--verbose flag of §6).
func New(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return log, nil
}

// NewNop returns a logger that discards everything, for tests and for any
// caller that does not want log output.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
