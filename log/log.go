// Package log provides the logger handles used by the CLI and walker.
// There is no package-level logger: every caller obtains its own handle
// from New and threads it explicitly.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console-encoded logger writing to stderr. debug raises the
// level to zap's Debug; otherwise only Info and above are emitted.
func New(debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// Noop returns a logger that discards everything, for tests that don't
// want log output polluting -v runs.
func Noop() *zap.Logger {
	return zap.NewNop()
}
