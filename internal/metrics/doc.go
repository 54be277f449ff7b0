// Package metrics aggregates everything a healthfire run measures.
//
// A [Recorder] is the single sink shared by all virtual users. It feeds:
//   - a [Collector] with HTTP latencies (HDR histogram), failures, status
//     buckets and per-endpoint breakdowns
//   - [Checks], the pass/fail counts of every named check
//   - the "errors" [Rate], one sample per endpoint check group
//   - iteration and VU counters
//
// [Recorder.Summary] produces the end-of-run [Summary] consumed by the
// threshold evaluator and the report printers.
//
// # Prometheus
//
// An [Exporter] can be attached as an [Observer] to expose live counters:
//
//	exp := metrics.NewExporter(runID)
//	rec := metrics.NewRecorder(runID, exp)
//	http.Handle("/metrics", exp.Handler())
//
// # Thread Safety
//
// All types are safe for concurrent use.
package metrics
