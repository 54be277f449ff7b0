package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary.
type Result struct {
	Iterations       int64
	FailedIterations int64
	MaxVUs           int
	Duration         time.Duration
}

// Runner drives a Scenario with a ramping number of virtual users.
type Runner struct {
	opt     Options
	plan    *Plan
	arrival arrivalController

	active     atomic.Int64
	iterations atomic.Int64
	failed     atomic.Int64
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{
		opt:     opt,
		plan:    CompilePlan(opt.StartVUs, opt.Stages),
		arrival: newArrivalController(opt),
	}
}

// Plan returns the compiled load profile.
func (r *Runner) Plan() *Plan { return r.plan }

// ActiveVUs reports the number of VUs currently looping. VUs finishing their
// last iteration during ramp-down are not counted.
func (r *Runner) ActiveVUs() int { return int(r.active.Load()) }

// Iterations reports completed iterations so far.
func (r *Runner) Iterations() int64 { return r.iterations.Load() }

// vu is a running virtual user. Closing stop asks it to finish the current
// iteration; cancel interrupts the iteration.
type vu struct {
	id     int
	stop   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

func (v *vu) halt(grace time.Duration) {
	v.once.Do(func() {
		close(v.stop)
		if grace <= 0 {
			v.cancel()
			return
		}
		time.AfterFunc(grace, v.cancel)
	})
}

// Run executes the plan and blocks until every VU has exited. Cancelling ctx
// interrupts in-flight iterations immediately.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	if r.opt.Scenario == nil {
		return Result{}
	}

	var (
		wg     sync.WaitGroup
		vus    []*vu
		maxVUs int
	)

	scale := func(target int) {
		changed := false
		for len(vus) < target {
			vuCtx, cancel := context.WithCancel(ctx)
			v := &vu{id: len(vus), stop: make(chan struct{}), cancel: cancel}
			vus = append(vus, v)
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.loop(vuCtx, v)
			}()
			changed = true
		}
		for len(vus) > target {
			last := vus[len(vus)-1]
			vus = vus[:len(vus)-1]
			last.halt(r.opt.GracefulRampDown)
			changed = true
		}
		if len(vus) > maxVUs {
			maxVUs = len(vus)
		}
		if changed {
			r.active.Store(int64(len(vus)))
			if r.opt.OnVUChange != nil {
				r.opt.OnVUChange(len(vus))
			}
		}
	}

	if target, ok := r.plan.TargetAt(0); ok {
		scale(target)
	}

	ticker := time.NewTicker(r.opt.TickInterval)
	grace := r.opt.GracefulRampDown
control:
	for {
		select {
		case <-ctx.Done():
			grace = 0
			break control
		case <-ticker.C:
			target, ok := r.plan.TargetAt(time.Since(start))
			if !ok {
				break control
			}
			scale(target)
		}
	}
	ticker.Stop()

	for _, v := range vus {
		v.halt(grace)
	}
	r.active.Store(0)
	if r.opt.OnVUChange != nil && len(vus) > 0 {
		r.opt.OnVUChange(0)
	}
	wg.Wait()

	return Result{
		Iterations:       r.iterations.Load(),
		FailedIterations: r.failed.Load(),
		MaxVUs:           maxVUs,
		Duration:         time.Since(start),
	}
}

func (r *Runner) loop(ctx context.Context, v *vu) {
	defer v.cancel()
	for {
		select {
		case <-v.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		if r.arrival != nil {
			if err := r.arrival.Wait(ctx); err != nil {
				return
			}
			select {
			case <-v.stop:
				return
			default:
			}
		}

		err := r.opt.Scenario.Iterate(ctx, v.id)
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// Interrupted by ramp-down or shutdown; not a completed iteration.
			return
		}
		r.iterations.Add(1)
		if err != nil {
			r.failed.Add(1)
		}
		if r.opt.OnIteration != nil {
			r.opt.OnIteration(err != nil)
		}
	}
}
