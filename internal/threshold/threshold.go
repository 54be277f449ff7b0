// Package threshold evaluates pass/fail criteria such as
// "http_req_duration:p(95)<500" against a run summary.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/healthfire/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g. "http_req_duration", "errors"
	Aggregate string  // normalized, e.g. "p95", "avg", "rate"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // compared against the aggregate
	Raw       string  // original string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// metricAggregates lists the aggregates each metric supports.
// Durations are in milliseconds, rates are fractions between 0 and 1.
var metricAggregates = map[string][]string{
	"http_req_duration": {"p50", "p90", "p95", "p99", "avg", "min", "max"},
	"http_req_failed":   {"rate", "count"},
	"http_reqs":         {"count", "rate"},
	"errors":            {"rate", "count"},
	"checks":            {"rate", "count"},
	"iterations":        {"count", "rate"},
}

var metricAliases = map[string]string{
	"http_requests": "http_reqs",
}

var aggregateAliases = map[string]string{
	"med":  "p50",
	"mean": "avg",
}

// metric:aggregate operator value. The aggregate may use the k6 form p(95).
var thresholdPattern = regexp.MustCompile(`^([a-z_]+)\s*:\s*([a-z]+(?:\(\s*[0-9.]+\s*\)|[0-9]*))\s*(<=|>=|==|<|>)\s*(-?[0-9]*\.?[0-9]+)$`)

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the provided summary.
func (e *Evaluator) Evaluate(summary metrics.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, summary))
	}
	return results
}

// AllPassed reports whether every result passed. An empty list passes.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, summary metrics.Summary) Result {
	actual, err := extractMetricValue(t, summary)
	if err != nil {
		return Result{Threshold: t, Message: fmt.Sprintf("✗ %s: error: %v", t.Raw, err)}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %s %s %s", status, t.Raw, formatValue(actual), t.Operator, formatValue(t.Value)),
	}
}

// Parse parses a threshold string. Supported forms include:
//   - "http_req_duration:p(95)<500"  latency percentile in ms (p95 also accepted)
//   - "http_req_duration:avg < 200"  average latency in ms
//   - "http_req_failed:rate<0.01"    failed request fraction
//   - "errors:rate<0.01"             failed check group fraction
//   - "checks:rate>0.99"             passed check fraction
//   - "http_reqs:count>100"          total requests
//   - "iterations:rate>1"            iterations per second
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'http_req_duration:p(95)<500')", s)
	}

	metric := matches[1]
	if alias, ok := metricAliases[metric]; ok {
		metric = alias
	}
	aggregates, ok := metricAggregates[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", matches[1], supportedMetrics())
	}

	aggregate := normalizeAggregate(matches[2])
	if !contains(aggregates, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", matches[2], metric, strings.Join(aggregates, ", "))
	}

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %w", matches[4], err)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  matches[3],
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings, reporting every invalid one.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var issues []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			issues = append(issues, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(issues, "; "))
	}
	return result, nil
}

// normalizeAggregate maps "p(95)" and "p( 95 )" to "p95" and resolves aliases.
func normalizeAggregate(raw string) string {
	agg := strings.NewReplacer("(", "", ")", "", " ", "").Replace(raw)
	if alias, ok := aggregateAliases[agg]; ok {
		return alias
	}
	return agg
}

func supportedMetrics() string {
	return "http_req_duration, http_req_failed, http_reqs, errors, checks, iterations"
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, s metrics.Summary) (float64, error) {
	switch t.Metric {
	case "http_req_duration":
		return extractLatencyMetric(t.Aggregate, s.HTTP)
	case "http_req_failed":
		return countOrRate(t, float64(s.HTTP.Failures), fraction(s.HTTP.Failures, s.HTTP.Total))
	case "http_reqs":
		return countOrRate(t, float64(s.HTTP.Total), s.HTTP.RequestsPerSec)
	case "errors":
		return countOrRate(t, float64(s.Errors.Trues), s.Errors.Rate)
	case "checks":
		return countOrRate(t, float64(s.ChecksRate.Total()), s.ChecksRate.Rate)
	case "iterations":
		return countOrRate(t, float64(s.Iterations), s.IterationsPerSec)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return stats.P50LatencyMs, nil
	case "p90":
		return stats.P90LatencyMs, nil
	case "p95":
		return stats.P95LatencyMs, nil
	case "p99":
		return stats.P99LatencyMs, nil
	case "avg":
		return stats.MeanLatencyMs, nil
	case "min":
		return stats.MinLatencyMs, nil
	case "max":
		return stats.MaxLatencyMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for http_req_duration", aggregate)
	}
}

func countOrRate(t Threshold, count, rate float64) (float64, error) {
	switch t.Aggregate {
	case "count":
		return count, nil
	case "rate":
		return rate, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for %s (use 'count' or 'rate')", t.Aggregate, t.Metric)
	}
}

func fraction(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
