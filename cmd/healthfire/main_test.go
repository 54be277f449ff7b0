package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/torosent/healthfire/internal/config"
	"github.com/torosent/healthfire/internal/probe"
	"github.com/torosent/healthfire/internal/runner"
)

func newHealthService(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		state := "UP"
		if status != http.StatusOK {
			state = "DOWN"
		}
		body := `{"status":"` + state + `"`
		if r.URL.Path == "/q/health/ready" {
			body += `,"checks":[{"name":"Keycloak health check","status":"` + state + `"}]`
		}
		_, _ = w.Write([]byte(body + "}"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runArgs(url string, extra ...string) []string {
	args := []string{
		"--api-url", url,
		"--start-vus", "1",
		"--stage", "300ms:1",
		"--pause", "50ms",
		"--graceful-ramp-down", "1s",
		"--log-level", "error",
	}
	return append(args, extra...)
}

type jsonSummary struct {
	Iterations int64 `json:"iterations"`
	Errors     struct {
		Trues  int64 `json:"trues"`
		Falses int64 `json:"falses"`
	} `json:"errors"`
	Thresholds struct {
		Failed int `json:"failed"`
	} `json:"thresholds"`
}

func TestRunHealthyService(t *testing.T) {
	srv := newHealthService(t, http.StatusOK)

	var stdout bytes.Buffer
	if err := run(context.Background(), runArgs(srv.URL, "--json-output"), &stdout); err != nil {
		t.Fatalf("run() error = %v\n%s", err, stdout.String())
	}

	var got jsonSummary
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	if got.Iterations == 0 {
		t.Error("no iterations completed")
	}
	if got.Errors.Trues != 0 || got.Errors.Falses == 0 {
		t.Errorf("errors = %+v, want only passing groups", got.Errors)
	}
	if got.Thresholds.Failed != 0 {
		t.Errorf("thresholds failed = %d", got.Thresholds.Failed)
	}
}

func TestRunFailingServiceBreaksThresholds(t *testing.T) {
	srv := newHealthService(t, http.StatusServiceUnavailable)

	var stdout bytes.Buffer
	err := run(context.Background(), runArgs(srv.URL, "--json-output", "--log-errors"), &stdout)
	if !errors.Is(err, errThresholdsFailed) {
		t.Fatalf("run() error = %v, want errThresholdsFailed", err)
	}

	var got jsonSummary
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	if got.Errors.Trues == 0 || got.Errors.Falses != 0 {
		t.Errorf("errors = %+v, want every group failed", got.Errors)
	}
	if got.Thresholds.Failed != 1 {
		t.Errorf("thresholds failed = %d, want the error-rate threshold", got.Thresholds.Failed)
	}
}

func TestRunTextReportServesMetrics(t *testing.T) {
	srv := newHealthService(t, http.StatusOK)

	var stdout bytes.Buffer
	if err := run(context.Background(), runArgs(srv.URL, "--metrics-addr", "127.0.0.1:0"), &stdout); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"Health Check Load Test Results", "✓ keycloak check exists", "Thresholds (2/2 passed)"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRunHelp(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, &stdout); err != nil {
		t.Fatalf("run(--help) error = %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"--api-url", "not-a-url"}, &stdout)
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("run() error = %v, want ValidationError", err)
	}
	if code := exitCode(err); code != 2 {
		t.Errorf("exitCode() = %d, want 2", code)
	}
	if code := exitCode(errThresholdsFailed); code != 1 {
		t.Errorf("exitCode(thresholds) = %d, want 1", code)
	}
}

func TestRunBadTokenAbortsBeforeLoad(t *testing.T) {
	srv := newHealthService(t, http.StatusOK)
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer idp.Close()

	t.Setenv("HEALTHFIRE_AUTH_TYPE", "oauth2_client_credentials")
	t.Setenv("HEALTHFIRE_AUTH_TOKEN_URL", idp.URL)
	t.Setenv("HEALTHFIRE_AUTH_CLIENT_ID", "probe")
	t.Setenv("HEALTHFIRE_AUTH_CLIENT_SECRET", "wrong")

	var stdout bytes.Buffer
	err := run(context.Background(), runArgs(srv.URL, "--json-output"), &stdout)
	if err == nil || !strings.Contains(err.Error(), "fetch token") {
		t.Fatalf("run() error = %v, want token failure", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("run produced a report after a token failure:\n%s", stdout.String())
	}
}

func TestZapFailureLoggerOnlyReportsAssertions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &zapFailureLogger{logger: zap.New(core)}

	l.LogFailure(1, errors.New("network down"))
	l.LogFailure(2, errors.Join(&probe.AssertionError{Endpoint: "liveness", Status: 503, Failed: []string{"status is 200"}}))
	l.LogFailure(3, nil)

	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["vu"]; got != int64(2) {
		t.Errorf("vu = %v, want 2", got)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Errorf("newLogger(%q) error = %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("newLogger(loud) error = nil, want error")
	}
}

func TestToRunnerArrivalModel(t *testing.T) {
	tests := []struct {
		input config.ArrivalModel
		want  runner.ArrivalModel
	}{
		{config.ArrivalModelUniform, runner.ArrivalModelUniform},
		{config.ArrivalModelPoisson, runner.ArrivalModelPoisson},
		{"unknown", runner.ArrivalModelUniform},
	}
	for _, tt := range tests {
		if got := toRunnerArrivalModel(tt.input); got != tt.want {
			t.Errorf("toRunnerArrivalModel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToRunnerStages(t *testing.T) {
	got := toRunnerStages(config.DefaultStages())
	if len(got) != 3 || got[1] != (runner.Stage{Duration: time.Minute, Target: 4}) {
		t.Errorf("toRunnerStages() = %+v", got)
	}
}
