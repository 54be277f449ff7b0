// Package runner provides the virtual-user execution engine for healthfire.
//
// A [Runner] compiles a list of [Stage] values into a piecewise-linear
// [Plan] of target VU counts and, every tick, starts or stops VU goroutines
// to follow it. Each VU runs its [Scenario] in a loop until it is ramped
// down or the plan ends.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Stages: []runner.Stage{
//			{Duration: 30 * time.Second, Target: 2},
//			{Duration: time.Minute, Target: 4},
//			{Duration: 30 * time.Second, Target: 0},
//		},
//		GracefulRampDown: 30 * time.Second,
//		Scenario:         myScenario,
//	})
//	result := r.Run(ctx)
//
// # Ramp-down
//
// A VU removed by the plan finishes its current iteration. Iterations still
// running after GracefulRampDown are cancelled through their context and are
// not counted. Cancelling the context passed to Run interrupts every VU at once.
//
// # Pacing
//
// MaxIterationRate caps iteration starts per second across all VUs, spaced
// evenly ([ArrivalModelUniform]) or as a Poisson process ([ArrivalModelPoisson]).
//
// # Middleware
//
// [WithLogging] reports failed iterations to a [FailureLogger].
package runner
