package metrics

import (
	"sync"
	"testing"
)

func TestRateEmpty(t *testing.T) {
	var r Rate
	s := r.Snapshot()
	if s.Rate != 0 || s.Total() != 0 {
		t.Fatalf("empty rate = %+v, want zero", s)
	}
}

func TestRateFraction(t *testing.T) {
	var r Rate
	r.Add(true)
	for i := 0; i < 3; i++ {
		r.Add(false)
	}
	s := r.Snapshot()
	if s.Trues != 1 || s.Falses != 3 || s.Rate != 0.25 {
		t.Fatalf("snapshot = %+v, want 1/3 rate 0.25", s)
	}
}

func TestRateConcurrent(t *testing.T) {
	var r Rate
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(fail bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Add(fail)
			}
		}(i%2 == 0)
	}
	wg.Wait()
	s := r.Snapshot()
	if s.Total() != 800 || s.Rate != 0.5 {
		t.Fatalf("snapshot = %+v, want 800 samples at 0.5", s)
	}
}

func TestChecksOrderAndOverall(t *testing.T) {
	c := NewChecks()
	c.Record("status is 200", true)
	c.Record("response is JSON", true)
	c.Record("status is 200", false)
	c.Record("status is UP", true)

	results := c.Results()
	want := []string{"status is 200", "response is JSON", "status is UP"}
	if len(results) != len(want) {
		t.Fatalf("Results() len = %d, want %d", len(results), len(want))
	}
	for i, name := range want {
		if results[i].Name != name {
			t.Errorf("Results()[%d] = %q, want %q", i, results[i].Name, name)
		}
	}
	if results[0].Passes != 1 || results[0].Fails != 1 {
		t.Errorf("status is 200 = %+v, want 1 pass 1 fail", results[0])
	}

	overall := c.Overall()
	if overall.Trues != 3 || overall.Falses != 1 || overall.Rate != 0.75 {
		t.Errorf("Overall() = %+v, want 3/1 rate 0.75", overall)
	}
}

func TestFriendlyErrorName(t *testing.T) {
	tests := map[string]string{
		"":                              "Unknown error",
		"*url.Error":                    "Request URL error",
		"*net.OpError":                  "Network error",
		"context.deadlineExceededError": "Context deadline exceeded",
		"*errors.errorString":           "Error String (errors)",
		"*main.HTTPTimeout":             "HTTP Timeout",
	}
	for in, want := range tests {
		if got := FriendlyErrorName(in); got != want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", in, got, want)
		}
	}
}
