package metrics

import "sync"

// CheckResult holds pass/fail counts for one named check.
type CheckResult struct {
	Name   string `json:"name"`
	Passes int64  `json:"passes"`
	Fails  int64  `json:"fails"`
}

// Checks counts named check outcomes, preserving first-seen order.
type Checks struct {
	mu      sync.Mutex
	order   []string
	results map[string]*CheckResult
}

func NewChecks() *Checks {
	return &Checks{results: make(map[string]*CheckResult)}
}

func (c *Checks) Record(name string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, found := c.results[name]
	if !found {
		res = &CheckResult{Name: name}
		c.results[name] = res
		c.order = append(c.order, name)
	}
	if ok {
		res.Passes++
	} else {
		res.Fails++
	}
}

// Results returns a copy of every check in first-seen order.
func (c *Checks) Results() []CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CheckResult, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.results[name])
	}
	return out
}

// Overall aggregates all checks as a pass rate, the k6 "checks" metric.
func (c *Checks) Overall() RateStats {
	var s RateStats
	for _, r := range c.Results() {
		s.Trues += r.Passes
		s.Falses += r.Fails
	}
	if total := s.Total(); total > 0 {
		s.Rate = float64(s.Trues) / float64(total)
	}
	return s
}
