package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthfire"

// Exporter mirrors recorded samples into a Prometheus registry so a run can
// be scraped while it is in progress.
type Exporter struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	failed     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	checks     *prometheus.CounterVec
	groups     *prometheus.CounterVec
	iterations *prometheus.CounterVec
	vus        prometheus.Gauge
}

// NewExporter creates an Exporter on its own registry. runID, when set, is
// attached to every series as the run_id label.
func NewExporter(runID string) *Exporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	var constLabels prometheus.Labels
	if runID != "" {
		constLabels = prometheus.Labels{"run_id": runID}
	}
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_reqs_total",
			Help:        "HTTP requests sent, by endpoint and status class.",
			ConstLabels: constLabels,
		}, []string{"endpoint", "status"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_req_failed_total",
			Help:        "HTTP requests that errored or returned a status >= 400.",
			ConstLabels: constLabels,
		}, []string{"endpoint"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "http_req_duration_seconds",
			Help:        "HTTP request duration.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"endpoint"}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "checks_total",
			Help:        "Named check outcomes.",
			ConstLabels: constLabels,
		}, []string{"check", "result"}),
		groups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "groups_total",
			Help:        "Endpoint check groups, by outcome. The error rate is fail / total.",
			ConstLabels: constLabels,
		}, []string{"endpoint", "result"}),
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "iterations_total",
			Help:        "Completed scenario iterations.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		vus: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "vus",
			Help:        "Active virtual users.",
			ConstLabels: constLabels,
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

func (e *Exporter) ObserveRequest(endpoint string, status int, latency time.Duration, failed bool) {
	e.requests.WithLabelValues(endpoint, StatusClass(status)).Inc()
	e.duration.WithLabelValues(endpoint).Observe(latency.Seconds())
	if failed {
		e.failed.WithLabelValues(endpoint).Inc()
	}
}

func (e *Exporter) ObserveCheck(name string, ok bool) {
	e.checks.WithLabelValues(name, outcome(!ok)).Inc()
}

func (e *Exporter) ObserveGroup(endpoint string, failed bool) {
	e.groups.WithLabelValues(endpoint, outcome(failed)).Inc()
}

func (e *Exporter) ObserveIteration(failed bool) {
	e.iterations.WithLabelValues(outcome(failed)).Inc()
}

func (e *Exporter) SetActiveVUs(n int) {
	e.vus.Set(float64(n))
}

func outcome(failed bool) string {
	if failed {
		return "fail"
	}
	return "pass"
}
