package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/healthfire/internal/httpclient"
	"github.com/torosent/healthfire/internal/metrics"
	"github.com/torosent/healthfire/internal/tracing"
)

// AssertionError reports the checks that failed for one endpoint group.
type AssertionError struct {
	Endpoint string
	Status   int
	Failed   []string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: status %d: failed checks: %s", e.Endpoint, e.Status, strings.Join(e.Failed, ", "))
}

// Options configures a Prober.
type Options struct {
	Context   RunContext
	Client    *http.Client
	Recorder  *metrics.Recorder
	Logger    *zap.Logger
	Tracing   *tracing.Provider
	Endpoints []Endpoint
	// Pause is slept after the last group of every iteration.
	Pause time.Duration
}

// Prober runs health-check iterations. It is safe for concurrent use by
// many virtual users.
type Prober struct {
	builder   *httpclient.RequestBuilder
	client    *http.Client
	recorder  *metrics.Recorder
	logger    *zap.Logger
	tracer    trace.Tracer
	propagate bool
	endpoints []Endpoint
	pause     time.Duration
}

func New(opts Options) (*Prober, error) {
	if opts.Recorder == nil {
		return nil, errors.New("probe: recorder is required")
	}
	builder, err := opts.Context.requestBuilder()
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	if opts.Client == nil {
		opts.Client = httpclient.NewClient(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = DefaultEndpoints("")
	}
	if opts.Pause < 0 {
		opts.Pause = 0
	}
	return &Prober{
		builder:   builder,
		client:    opts.Client,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		tracer:    opts.Tracing.Tracer(),
		propagate: opts.Tracing.ShouldPropagate(),
		endpoints: opts.Endpoints,
		pause:     opts.Pause,
	}, nil
}

// Iterate probes every endpoint in order, then pauses. The returned error
// joins the failures of all groups; it is nil when every group passed.
// Cancellation returns the context error and leaves the interrupted group
// unrecorded.
func (p *Prober) Iterate(ctx context.Context, vu int) error {
	var errs []error
	for _, ep := range p.endpoints {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.probe(ctx, vu, ep); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
		}
	}
	if err := sleep(ctx, p.pause); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (p *Prober) probe(ctx context.Context, vu int, ep Endpoint) error {
	ctx, span := tracing.StartProbeSpan(ctx, p.tracer, ep.Name, p.builder.BaseURL()+ep.Path)

	req, err := p.builder.Get(ctx, ep.Path)
	if err != nil {
		return p.exception(span, vu, ep, err)
	}
	if p.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			tracing.EndSpan(span, ctx.Err())
			return ctx.Err()
		}
		p.recorder.RecordRequest(ep.Name, 0, time.Since(start), err)
		return p.exception(span, vu, ep, err)
	}
	res, err := readResponse(resp)
	latency := time.Since(start)
	if ctx.Err() != nil {
		tracing.EndSpan(span, ctx.Err())
		return ctx.Err()
	}
	if res == nil {
		p.recorder.RecordRequest(ep.Name, resp.StatusCode, latency, err)
		return p.exception(span, vu, ep, err)
	}
	p.recorder.RecordRequest(ep.Name, res.StatusCode, latency, nil)
	statusAttr := attribute.Int("http.response.status_code", res.StatusCode)
	if err != nil {
		span.SetAttributes(statusAttr)
		return p.exception(span, vu, ep, err)
	}

	var failed []string
	for _, check := range ep.Checks {
		ok := check.Fn(res)
		p.recorder.RecordCheck(check.Name, ok)
		if !ok {
			failed = append(failed, check.Name)
		}
	}
	p.recorder.RecordGroup(ep.Name, len(failed) > 0)

	if len(failed) > 0 {
		aerr := &AssertionError{Endpoint: ep.Name, Status: res.StatusCode, Failed: failed}
		tracing.EndSpan(span, aerr, statusAttr)
		return aerr
	}
	tracing.EndSpan(span, nil, statusAttr)
	return nil
}

// exception logs err, counts the group as failed and skips its checks.
func (p *Prober) exception(span trace.Span, vu int, ep Endpoint, err error) error {
	p.logger.Error(ep.Group+" failed",
		zap.String("endpoint", ep.Name),
		zap.Int("vu", vu),
		zap.Error(err),
	)
	p.recorder.RecordGroup(ep.Name, true)
	tracing.EndSpan(span, err)
	return fmt.Errorf("%s: %w", ep.Name, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
