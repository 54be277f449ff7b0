package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/torosent/healthfire/internal/auth"
	"github.com/torosent/healthfire/internal/config"
	"github.com/torosent/healthfire/internal/httpclient"
	"github.com/torosent/healthfire/internal/metrics"
	"github.com/torosent/healthfire/internal/output"
	"github.com/torosent/healthfire/internal/probe"
	"github.com/torosent/healthfire/internal/runner"
	"github.com/torosent/healthfire/internal/threshold"
	"github.com/torosent/healthfire/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// errThresholdsFailed is returned when the run completed but a threshold did not hold.
var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for invalid configuration and 1 for every other failure.
func exitCode(err error) int {
	var verr config.ValidationError
	if errors.As(err, &verr) {
		return 2
	}
	return 1
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	runID := ulid.Make().String()
	logger = logger.With(zap.String("run_id", runID))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traces, err := tracing.Init(ctx, cfg.Tracing, runID)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := traces.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	client := httpclient.NewClient(cfg.Timeout)
	provider, err := auth.New(cfg.Auth, nil)
	if err != nil {
		return err
	}
	if provider != nil {
		defer provider.Close()
	}
	runCtx, err := probe.Setup(ctx, cfg, provider)
	if err != nil {
		return err
	}

	var observers []metrics.Observer
	if cfg.MetricsAddr != "" {
		exporter := metrics.NewExporter(runID)
		stop, err := serveMetrics(cfg.MetricsAddr, exporter.Handler(), logger)
		if err != nil {
			return err
		}
		defer stop()
		observers = append(observers, exporter)
	}
	rec := metrics.NewRecorder(runID, observers...)

	prober, err := probe.New(probe.Options{
		Context:   runCtx,
		Client:    client,
		Recorder:  rec,
		Logger:    logger,
		Tracing:   traces,
		Endpoints: probe.DefaultEndpoints(cfg.ReadinessCheck),
		Pause:     cfg.Pause,
	})
	if err != nil {
		return err
	}

	var scenario runner.Scenario = prober
	if cfg.LogErrors {
		scenario = runner.WithLogging(scenario, &zapFailureLogger{logger: logger})
	}

	r := runner.New(runner.Options{
		Stages:           toRunnerStages(cfg.Stages),
		StartVUs:         cfg.StartVUs,
		GracefulRampDown: cfg.GracefulRampDown,
		MaxIterationRate: cfg.MaxIterationRate,
		ArrivalModel:     toRunnerArrivalModel(cfg.Arrival.Model),
		Scenario:         scenario,
		OnVUChange:       rec.SetActiveVUs,
		OnIteration:      rec.RecordIteration,
	})

	logger.Info("starting run",
		zap.String("api_url", runCtx.BaseURL),
		zap.Duration("duration", r.Plan().Duration()),
		zap.Int("max_vus", r.Plan().MaxVUs()),
	)

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(rec, progressInterval, stdout)
		progress.Start()
	}
	result := r.Run(ctx)
	if progress != nil {
		progress.Stop()
		fmt.Fprintln(stdout)
	}

	summary := rec.Summary(result.Duration)
	results := threshold.NewEvaluator(thresholds).Evaluate(summary)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, summary, results); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, summary, results)
	}

	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}

// serveMetrics starts the /metrics listener. The returned func shuts it down.
func serveMetrics(addr string, handler http.Handler, logger *zap.Logger) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func toRunnerStages(stages []config.Stage) []runner.Stage {
	out := make([]runner.Stage, len(stages))
	for i, s := range stages {
		out[i] = runner.Stage{Duration: s.Duration, Target: s.Target}
	}
	return out
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch model {
	case config.ArrivalModelPoisson:
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}
