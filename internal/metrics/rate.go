package metrics

import "sync/atomic"

// Rate tracks the fraction of samples that were true.
// The "errors" metric adds true for a failed check group and false for a
// passing one, so its Value is the group failure rate.
type Rate struct {
	trues atomic.Int64
	total atomic.Int64
}

// Add records one sample.
func (r *Rate) Add(v bool) {
	if v {
		r.trues.Add(1)
	}
	r.total.Add(1)
}

// Snapshot returns the counts recorded so far.
func (r *Rate) Snapshot() RateStats {
	trues := r.trues.Load()
	total := r.total.Load()
	s := RateStats{Trues: trues, Falses: total - trues}
	if total > 0 {
		s.Rate = float64(trues) / float64(total)
	}
	return s
}

// RateStats is a point-in-time view of a Rate. Rate is 0 when no samples exist.
type RateStats struct {
	Trues  int64   `json:"trues"`
	Falses int64   `json:"falses"`
	Rate   float64 `json:"rate"`
}

// Total is the number of samples.
func (s RateStats) Total() int64 { return s.Trues + s.Falses }
