package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives every sample the Recorder sees. The Prometheus Exporter
// is one.
type Observer interface {
	ObserveRequest(endpoint string, status int, latency time.Duration, failed bool)
	ObserveCheck(name string, ok bool)
	ObserveGroup(endpoint string, failed bool)
	ObserveIteration(failed bool)
	SetActiveVUs(n int)
}

// Recorder is the single sink for a run: HTTP timings, named checks, the
// error rate, iterations and VU counts.
type Recorder struct {
	runID     string
	start     time.Time
	requests  *Collector
	checks    *Checks
	errors    Rate
	observers []Observer

	iterations       atomic.Int64
	failedIterations atomic.Int64
	vus              atomic.Int64

	mu     sync.Mutex
	maxVUs int
}

func NewRecorder(runID string, observers ...Observer) *Recorder {
	return &Recorder{
		runID:     runID,
		start:     time.Now(),
		requests:  NewCollector(),
		checks:    NewChecks(),
		observers: observers,
	}
}

func (r *Recorder) RunID() string { return r.runID }

// RecordRequest records one HTTP request against endpoint. status is 0 when
// no response was received.
func (r *Recorder) RecordRequest(endpoint string, status int, latency time.Duration, err error) {
	r.requests.RecordRequest(latency, err, &RequestMetadata{Endpoint: endpoint, StatusCode: status})
	failed := err != nil || status >= 400
	for _, o := range r.observers {
		o.ObserveRequest(endpoint, status, latency, failed)
	}
}

func (r *Recorder) RecordCheck(name string, ok bool) {
	r.checks.Record(name, ok)
	for _, o := range r.observers {
		o.ObserveCheck(name, ok)
	}
}

// RecordGroup adds one sample to the error rate.
func (r *Recorder) RecordGroup(endpoint string, failed bool) {
	r.errors.Add(failed)
	for _, o := range r.observers {
		o.ObserveGroup(endpoint, failed)
	}
}

func (r *Recorder) RecordIteration(failed bool) {
	r.iterations.Add(1)
	if failed {
		r.failedIterations.Add(1)
	}
	for _, o := range r.observers {
		o.ObserveIteration(failed)
	}
}

func (r *Recorder) SetActiveVUs(n int) {
	r.vus.Store(int64(n))
	r.mu.Lock()
	if n > r.maxVUs {
		r.maxVUs = n
	}
	r.mu.Unlock()
	for _, o := range r.observers {
		o.SetActiveVUs(n)
	}
}

// Snapshot is a cheap live view for progress output.
type Snapshot struct {
	Elapsed    time.Duration
	ActiveVUs  int
	Iterations int64
	Requests   int64
	ErrorRate  float64
}

func (r *Recorder) Snapshot() Snapshot {
	stats := r.requests.Stats(0)
	return Snapshot{
		Elapsed:    time.Since(r.start),
		ActiveVUs:  int(r.vus.Load()),
		Iterations: r.iterations.Load(),
		Requests:   stats.Total,
		ErrorRate:  r.errors.Snapshot().Rate,
	}
}

// Summary is the end-of-run report.
type Summary struct {
	RunID            string        `json:"run_id,omitempty"`
	HTTP             Stats         `json:"http"`
	Errors           RateStats     `json:"errors"`
	Checks           []CheckResult `json:"checks"`
	ChecksRate       RateStats     `json:"checks_rate"`
	Iterations       int64         `json:"iterations"`
	FailedIterations int64         `json:"failed_iterations"`
	IterationsPerSec float64       `json:"iterations_per_sec"`
	MaxVUs           int           `json:"max_vus"`
	Duration         time.Duration `json:"-"`
	DurationMs       float64       `json:"duration_ms"`
}

// Summary aggregates everything recorded over elapsed.
func (r *Recorder) Summary(elapsed time.Duration) Summary {
	r.mu.Lock()
	maxVUs := r.maxVUs
	r.mu.Unlock()

	s := Summary{
		RunID:            r.runID,
		HTTP:             r.requests.Stats(elapsed),
		Errors:           r.errors.Snapshot(),
		Checks:           r.checks.Results(),
		ChecksRate:       r.checks.Overall(),
		Iterations:       r.iterations.Load(),
		FailedIterations: r.failedIterations.Load(),
		MaxVUs:           maxVUs,
		Duration:         elapsed,
		DurationMs:       toMillis(elapsed),
	}
	if elapsed > 0 {
		s.IterationsPerSec = float64(s.Iterations) / elapsed.Seconds()
	}
	return s
}
