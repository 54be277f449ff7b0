package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/torosent/healthfire/internal/metrics"
	"github.com/torosent/healthfire/internal/threshold"
)

func sampleSummary() metrics.Summary {
	rec := metrics.NewRecorder("01HZX3TESTRUN")
	rec.SetActiveVUs(4)
	for i := 0; i < 4; i++ {
		rec.RecordRequest("readiness", 200, 20*time.Millisecond, nil)
		rec.RecordCheck("status is 200", true)
		rec.RecordGroup("readiness", false)
	}
	rec.RecordRequest("liveness", 503, 40*time.Millisecond, nil)
	rec.RecordCheck("status is 200", false)
	rec.RecordGroup("liveness", true)
	rec.RecordIteration(false)
	rec.RecordIteration(true)
	return rec.Summary(2 * time.Second)
}

func sampleThresholds(t *testing.T, summary metrics.Summary) []threshold.Result {
	t.Helper()
	ths, err := threshold.ParseMultiple([]string{"http_req_duration:p(95)<500", "errors:rate<0.01"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	return threshold.NewEvaluator(ths).Evaluate(summary)
}

func TestPrintReport(t *testing.T) {
	summary := sampleSummary()
	var buf bytes.Buffer
	PrintReport(&buf, summary, sampleThresholds(t, summary))

	output := buf.String()
	for _, want := range []string{
		"Run ID:            01HZX3TESTRUN",
		"Max VUs:           4",
		"✗ status is 200",
		"4 passed, 1 failed",
		"Error Rate:        20.00% (1 of 5)",
		"- readiness: total=4",
		"- liveness: total=1, failures=1",
		"HTTP 503: 1",
		"Thresholds (1/2 passed):",
		"✗ errors:rate<0.01",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("report missing %q:\n%s", want, output)
		}
	}
}

func TestPrintReportWithoutThresholds(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, metrics.Summary{Duration: time.Second}, nil)
	if strings.Contains(buf.String(), "Thresholds") {
		t.Errorf("unexpected threshold section:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Error Rate:        0.00% (0 of 0)") {
		t.Errorf("expected zero error rate:\n%s", buf.String())
	}
}

func TestPrintJSONReport(t *testing.T) {
	summary := sampleSummary()
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, summary, sampleThresholds(t, summary)); err != nil {
		t.Fatalf("PrintJSONReport() error = %v", err)
	}

	var decoded struct {
		RunID  string            `json:"run_id"`
		Errors metrics.RateStats `json:"errors"`
		Checks []metrics.CheckResult
		HTTP   struct {
			Total int64 `json:"total"`
		} `json:"http"`
		Thresholds *ThresholdSummary `json:"thresholds"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "01HZX3TESTRUN" {
		t.Errorf("run_id = %q", decoded.RunID)
	}
	if decoded.Errors.Trues != 1 || decoded.HTTP.Total != 5 {
		t.Errorf("errors = %+v, http.total = %d", decoded.Errors, decoded.HTTP.Total)
	}
	if len(decoded.Checks) != 1 || decoded.Checks[0].Fails != 1 {
		t.Errorf("checks = %+v", decoded.Checks)
	}
	if decoded.Thresholds == nil || decoded.Thresholds.Failed != 1 || decoded.Thresholds.Passed != 1 {
		t.Errorf("thresholds = %+v", decoded.Thresholds)
	}
}
