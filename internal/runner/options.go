package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const defaultTickInterval = 100 * time.Millisecond

// Scenario is the per-iteration work a virtual user performs.
// vu is the zero-based index of the virtual user running the iteration.
type Scenario interface {
	Iterate(ctx context.Context, vu int) error
}

// ScenarioFunc adapts a plain function to a Scenario.
type ScenarioFunc func(ctx context.Context, vu int) error

func (f ScenarioFunc) Iterate(ctx context.Context, vu int) error {
	return f(ctx, vu)
}

// Stage is one (duration, target VUs) segment of the load profile.
type Stage struct {
	Duration time.Duration
	Target   int
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Options configure the Runner.
type Options struct {
	Stages           []Stage       // piecewise-linear VU ramp (required)
	StartVUs         int           // VUs active before the first stage
	GracefulRampDown time.Duration // time a stopped VU may spend finishing its iteration
	MaxIterationRate int           // iteration starts per second across all VUs (0 means unlimited)
	ArrivalModel     ArrivalModel  // pacing model when MaxIterationRate > 0
	Scenario         Scenario      // iteration executor (required)
	OnVUChange       func(active int)
	OnIteration      func(failed bool)           // called after every completed iteration
	TickInterval     time.Duration               // how often the VU target is recomputed
	LimiterFactory   func(rps int) *rate.Limiter // optional injection for tests
	PoissonSampler   func() float64              // optional injection for tests
	RandomSeed       int64
}

func (o *Options) normalize() {
	if o.StartVUs < 0 {
		o.StartVUs = 0
	}
	if o.GracefulRampDown < 0 {
		o.GracefulRampDown = 0
	}
	if o.MaxIterationRate < 0 {
		o.MaxIterationRate = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.TickInterval <= 0 {
		o.TickInterval = defaultTickInterval
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps iteration starts evenly spaced.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
