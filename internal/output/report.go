package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/torosent/healthfire/internal/metrics"
	"github.com/torosent/healthfire/internal/threshold"
)

// PrintReport writes the end-of-run summary: checks, error rate, HTTP
// timings, the per-endpoint breakdown and threshold outcomes.
func PrintReport(w io.Writer, summary metrics.Summary, results []threshold.Result) {
	stats := summary.HTTP

	fmt.Fprintln(w, "\n--- Health Check Load Test Results ---")
	if summary.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", summary.RunID)
	}
	fmt.Fprintf(w, "Duration:          %s\n", summary.Duration)
	fmt.Fprintf(w, "Max VUs:           %d\n", summary.MaxVUs)
	fmt.Fprintf(w, "Iterations:        %d (%d failed, %.2f/s)\n",
		summary.Iterations, summary.FailedIterations, summary.IterationsPerSec)

	if len(summary.Checks) > 0 {
		fmt.Fprintln(w, "\nChecks:")
		for _, c := range summary.Checks {
			mark := "✓"
			if c.Fails > 0 {
				mark = "✗"
			}
			fmt.Fprintf(w, "  %s %-28s %d passed, %d failed\n", mark, c.Name, c.Passes, c.Fails)
		}
		fmt.Fprintf(w, "  checks: %s\n", formatRate(summary.ChecksRate))
	}

	fmt.Fprintf(w, "\nError Rate:        %s\n", formatRate(summary.Errors))

	fmt.Fprintln(w, "\nHTTP:")
	fmt.Fprintf(w, "  Requests:        %d (%.2f/s)\n", stats.Total, stats.RequestsPerSec)
	fmt.Fprintf(w, "  Failed:          %d\n", stats.Failures)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P95:             %s\n", stats.P95Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.Endpoints) > 0 {
		fmt.Fprintln(w, "\nEndpoint Breakdown:")
		for _, name := range stats.EndpointNames() {
			ep := stats.Endpoints[name]
			fmt.Fprintf(w, "  - %s: total=%d, failures=%d, mean=%.2fms, p95=%.2fms, max=%.2fms\n",
				name, ep.Total, ep.Failures, ep.MeanLatencyMs, ep.P95LatencyMs, ep.MaxLatencyMs)
		}
	}

	if len(stats.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nStatus Buckets:")
		writeStatusBuckets(w, stats.StatusBuckets, "  ")
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		names := make([]string, 0, len(stats.Errors))
		for name := range stats.Errors {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if stats.Errors[names[i]] != stats.Errors[names[j]] {
				return stats.Errors[names[i]] > stats.Errors[names[j]]
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, stats.Errors[name])
		}
	}

	if len(results) > 0 {
		ts := summarizeThresholds(results)
		fmt.Fprintf(w, "\nThresholds (%d/%d passed):\n", ts.Passed, ts.Total)
		for _, r := range results {
			fmt.Fprintf(w, "  %s\n", r.Message)
		}
	}
}

// ThresholdSummary is the JSON form of the threshold outcomes.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

type jsonReport struct {
	metrics.Summary
	Thresholds *ThresholdSummary `json:"thresholds,omitempty"`
}

// PrintJSONReport writes the summary and threshold outcomes as indented JSON.
func PrintJSONReport(w io.Writer, summary metrics.Summary, results []threshold.Result) error {
	report := jsonReport{Summary: summary}
	if len(results) > 0 {
		report.Thresholds = summarizeThresholds(results)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	ts := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, r := range results {
		ts.Results[i] = ThresholdResultJSON{
			Threshold: r.Threshold.Raw,
			Metric:    r.Threshold.Metric,
			Aggregate: r.Threshold.Aggregate,
			Operator:  r.Threshold.Operator,
			Expected:  r.Threshold.Value,
			Actual:    r.Actual,
			Pass:      r.Pass,
		}
		if r.Pass {
			ts.Passed++
		} else {
			ts.Failed++
		}
	}
	return ts
}

func formatRate(s metrics.RateStats) string {
	return fmt.Sprintf("%.2f%% (%d of %d)", s.Rate*100, s.Trues, s.Total())
}

func writeStatusBuckets(w io.Writer, buckets map[string]map[string]int, indent string) {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s %s: %d\n", indent, strings.ToUpper(row.Protocol), row.Code, row.Count)
	}
}
