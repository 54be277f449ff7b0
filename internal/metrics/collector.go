package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// RequestMetadata describes the request being recorded.
type RequestMetadata struct {
	Endpoint   string
	StatusCode int
}

// Collector records per-request metrics in a thread-safe manner.
// A request counts as failed when it returns an error or a status >= 400.
type Collector struct {
	mu            sync.Mutex
	overall       *latencyStats
	endpoints     map[string]*latencyStats
	errorsByType  map[string]int64
	statusBuckets map[string]map[string]int
}

// latencyStats accumulates counts and a latency histogram.
type latencyStats struct {
	hist       *hdrhistogram.Histogram
	successes  int64
	failures   int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
}

func newLatencyStats() *latencyStats {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &latencyStats{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

func (l *latencyStats) record(latency time.Duration, failed bool) {
	if latency > 0 {
		us := latency.Microseconds()
		if us < l.hist.LowestTrackableValue() {
			us = l.hist.LowestTrackableValue()
		}
		if us > l.hist.HighestTrackableValue() {
			us = l.hist.HighestTrackableValue()
		}
		_ = l.hist.RecordValue(us)
	}
	l.sumLatency += latency
	if l.successes+l.failures == 0 || latency < l.minLatency {
		l.minLatency = latency
	}
	if latency > l.maxLatency {
		l.maxLatency = latency
	}
	if failed {
		l.failures++
	} else {
		l.successes++
	}
}

func (l *latencyStats) quantile(q float64) time.Duration {
	if l.hist.TotalCount() == 0 {
		return 0
	}
	return time.Duration(l.hist.ValueAtQuantile(q)) * time.Microsecond
}

// Stats represents aggregated metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	Endpoints     map[string]EndpointStats  `json:"endpoints,omitempty"`
	StatusBuckets map[string]map[string]int `json:"status_buckets,omitempty"`
	Errors        map[string]int            `json:"errors,omitempty"`
}

// EndpointStats is the per-endpoint breakdown of Stats.
type EndpointStats struct {
	Total         int64   `json:"total"`
	Failures      int64   `json:"failures"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
}

func NewCollector() *Collector {
	return &Collector{
		overall:       newLatencyStats(),
		endpoints:     make(map[string]*latencyStats),
		errorsByType:  make(map[string]int64),
		statusBuckets: make(map[string]map[string]int),
	}
}

// RecordRequest records a single request's latency and outcome.
func (c *Collector) RecordRequest(latency time.Duration, err error, meta *RequestMetadata) {
	failed := err != nil || (meta != nil && meta.StatusCode >= 400)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.overall.record(latency, failed)
	if meta != nil && meta.Endpoint != "" {
		ep, ok := c.endpoints[meta.Endpoint]
		if !ok {
			ep = newLatencyStats()
			c.endpoints[meta.Endpoint] = ep
		}
		ep.record(latency, failed)
	}

	if !failed {
		return
	}
	switch {
	case err != nil:
		c.errorsByType[FriendlyErrorName(fmt.Sprintf("%T", err))]++
	default:
		c.errorsByType[fmt.Sprintf("HTTP %d", meta.StatusCode)]++
	}
	if meta != nil && meta.StatusCode > 0 {
		codes, ok := c.statusBuckets["http"]
		if !ok {
			codes = make(map[string]int)
			c.statusBuckets["http"] = codes
		}
		codes[strconv.Itoa(meta.StatusCode)]++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.overall
	total := o.successes + o.failures
	stats := Stats{
		Total:      total,
		Successes:  o.successes,
		Failures:   o.failures,
		MinLatency: o.minLatency,
		MaxLatency: o.maxLatency,
		P50Latency: o.quantile(50),
		P90Latency: o.quantile(90),
		P95Latency: o.quantile(95),
		P99Latency: o.quantile(99),
	}
	if total > 0 {
		stats.MeanLatency = time.Duration(int64(o.sumLatency) / total)
	}

	stats.MinLatencyMs = toMillis(stats.MinLatency)
	stats.MaxLatencyMs = toMillis(stats.MaxLatency)
	stats.MeanLatencyMs = toMillis(stats.MeanLatency)
	stats.P50LatencyMs = toMillis(stats.P50Latency)
	stats.P90LatencyMs = toMillis(stats.P90Latency)
	stats.P95LatencyMs = toMillis(stats.P95Latency)
	stats.P99LatencyMs = toMillis(stats.P99Latency)

	stats.Duration = elapsed
	stats.DurationMs = toMillis(elapsed)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.endpoints) > 0 {
		stats.Endpoints = make(map[string]EndpointStats, len(c.endpoints))
		for name, ep := range c.endpoints {
			count := ep.successes + ep.failures
			es := EndpointStats{
				Total:        count,
				Failures:     ep.failures,
				P95LatencyMs: toMillis(ep.quantile(95)),
				MaxLatencyMs: toMillis(ep.maxLatency),
			}
			if count > 0 {
				es.MeanLatencyMs = toMillis(time.Duration(int64(ep.sumLatency) / count))
			}
			stats.Endpoints[name] = es
		}
	}

	if len(c.statusBuckets) > 0 {
		stats.StatusBuckets = make(map[string]map[string]int, len(c.statusBuckets))
		for protocol, codes := range c.statusBuckets {
			copied := make(map[string]int, len(codes))
			for code, n := range codes {
				copied[code] = n
			}
			stats.StatusBuckets[protocol] = copied
		}
	}

	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

// EndpointNames returns the recorded endpoint names in sorted order.
func (s Stats) EndpointNames() []string {
	names := make([]string, 0, len(s.Endpoints))
	for name := range s.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
