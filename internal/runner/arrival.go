package runner

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// arrivalController gates iteration starts shared by all VUs.
type arrivalController interface {
	Wait(ctx context.Context) error
}

// newArrivalController returns nil when iteration starts are not capped.
func newArrivalController(opt Options) arrivalController {
	if opt.MaxIterationRate <= 0 {
		return nil
	}
	switch opt.ArrivalModel {
	case ArrivalModelPoisson:
		sampler := opt.PoissonSampler
		if sampler == nil {
			seeded := rand.New(rand.NewSource(opt.RandomSeed))
			var mu sync.Mutex
			sampler = func() float64 {
				mu.Lock()
				defer mu.Unlock()
				return seeded.ExpFloat64()
			}
		}
		return &poissonArrival{rate: float64(opt.MaxIterationRate), sample: sampler}
	default:
		return &uniformArrival{limiter: opt.LimiterFactory(opt.MaxIterationRate)}
	}
}

// uniformArrival delegates pacing to a rate.Limiter (uniform spacing).
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

// poissonArrival samples exponential inter-arrival times to approximate a Poisson process.
// Starts are serialized through next so concurrent VUs share one arrival stream.
type poissonArrival struct {
	mu     sync.Mutex
	rate   float64
	next   time.Time
	sample func() float64
}

func (p *poissonArrival) Wait(ctx context.Context) error {
	delay := p.reserve(time.Now())
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve claims the next arrival slot and returns how long to wait for it.
func (p *poissonArrival) reserve(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.next.Before(now) {
		p.next = now
	}
	slot := p.next
	p.next = p.next.Add(p.nextDelay())
	return slot.Sub(now)
}

func (p *poissonArrival) nextDelay() time.Duration {
	if p.rate <= 0 || p.sample == nil {
		return 0
	}
	delay := float64(time.Second) * p.sample() / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay)
}
