package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/healthfire/internal/metrics"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressLine(t *testing.T) {
	line := progressLine(metrics.Snapshot{
		Elapsed:    1500 * time.Millisecond,
		ActiveVUs:  3,
		Iterations: 7,
		Requests:   21,
		ErrorRate:  0.25,
	})
	want := "\rElapsed: 1s | VUs: 3 | Iterations: 7 | Requests: 21 | Errors: 25.00%"
	if line != want {
		t.Errorf("progressLine() = %q, want %q", line, want)
	}
}

func TestProgressReporterWrites(t *testing.T) {
	rec := metrics.NewRecorder("")
	rec.SetActiveVUs(2)
	rec.RecordRequest("health", 200, time.Millisecond, nil)

	var buf lockedBuffer
	reporter := NewProgressReporter(rec, 20*time.Millisecond, &buf)
	reporter.Start()
	reporter.Start()
	time.Sleep(70 * time.Millisecond)
	reporter.Stop()
	reporter.Stop()

	output := buf.String()
	if !strings.Contains(output, "VUs: 2") || !strings.Contains(output, "Requests: 1") {
		t.Errorf("progress output = %q", output)
	}
}
