package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/torosent/healthfire/internal/probe"
)

// newLogger returns a JSON production logger, or a console logger at debug level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// zapFailureLogger reports failed iterations when --log-errors is set.
// Exceptions are already logged by the prober, so only failed checks are
// reported here.
type zapFailureLogger struct {
	logger *zap.Logger
}

func (l *zapFailureLogger) LogFailure(vu int, err error) {
	var aerr *probe.AssertionError
	if err == nil || !errors.As(err, &aerr) {
		return
	}
	l.logger.Warn("iteration failed checks", zap.Int("vu", vu), zap.Error(err))
}
