package runner

import (
	"context"
	"errors"
)

// FailureLogger receives failed iterations.
type FailureLogger interface {
	LogFailure(vu int, err error)
}

// WithLogging wraps a Scenario and reports iteration failures to logger.
// Cancellation at shutdown is not reported.
func WithLogging(s Scenario, logger FailureLogger) Scenario {
	if s == nil || logger == nil {
		return s
	}
	return ScenarioFunc(func(ctx context.Context, vu int) error {
		err := s.Iterate(ctx, vu)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.LogFailure(vu, err)
		}
		return err
	})
}
