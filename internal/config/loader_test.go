package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
		{time.Second, "1s"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{" 7 ", 7},
		{int64(789), 789},
		{float64(10.0), 10},
		{"", 0},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{"", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{10, 10 * time.Second}, // numbers are seconds
		{1.5, 1500 * time.Millisecond},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseThresholdsMapForm(t *testing.T) {
	got, err := parseThresholds(map[string]interface{}{
		"http_req_duration": []interface{}{"p(95)<500"},
		"errors":            []interface{}{"rate<0.01", "count<5"},
	})
	if err != nil {
		t.Fatalf("parseThresholds() error = %v", err)
	}
	want := []string{"errors:rate<0.01", "errors:count<5", "http_req_duration:p(95)<500"}
	if len(got) != len(want) {
		t.Fatalf("parseThresholds() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseThresholds()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := Default()
	settings := map[string]interface{}{
		"api_url":   "http://example.com",
		"start_vus": 2,
		"timeout":   "5s",
		"headers": map[string]interface{}{
			"content-type": "application/json",
		},
		"auth": map[string]interface{}{
			"type":          "oauth2_client_credentials",
			"token_url":     "http://idp/token",
			"client_id":     "probe",
			"client_secret": "s3cret",
			"scopes":        []interface{}{"health"},
		},
		"arrival": "poisson",
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.APIURL != "http://example.com" {
		t.Errorf("APIURL = %q, want http://example.com", cfg.APIURL)
	}
	if cfg.StartVUs != 2 {
		t.Errorf("StartVUs = %d, want 2", cfg.StartVUs)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Headers["Content-Type"] != "application/json" {
		t.Errorf("Headers[Content-Type] = %q, want application/json", cfg.Headers["Content-Type"])
	}
	if cfg.Auth.Type != AuthTypeOAuth2ClientCredentials || cfg.Auth.ClientID != "probe" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if len(cfg.Auth.Scopes) != 1 || cfg.Auth.Scopes[0] != "health" {
		t.Errorf("Auth.Scopes = %v", cfg.Auth.Scopes)
	}
	if cfg.Arrival.Model != ArrivalModelPoisson {
		t.Errorf("Arrival.Model = %q, want poisson", cfg.Arrival.Model)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := Default()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	args := []string{
		"--start-vus=3",
		"--pause=0s",
		"--header=X-Test=123",
		"--threshold=errors:rate<0.5",
		"--tracing-propagate",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.StartVUs != 3 {
		t.Errorf("StartVUs = %d, want 3", cfg.StartVUs)
	}
	if cfg.Pause != 0 {
		t.Errorf("Pause = %s, want 0", cfg.Pause)
	}
	if cfg.Headers["X-Test"] != "123" {
		t.Errorf("Headers[X-Test] = %q, want 123", cfg.Headers["X-Test"])
	}
	if len(cfg.Thresholds) != 1 || cfg.Thresholds[0] != "errors:rate<0.5" {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if !cfg.Tracing.Propagate || !cfg.Tracing.Enabled() {
		t.Errorf("Tracing = %+v, want propagate enabled", cfg.Tracing)
	}
}

func TestParseHeaderFlag(t *testing.T) {
	key, value, err := parseHeaderFlag("x-api-key = abc=def")
	if err != nil {
		t.Fatalf("parseHeaderFlag() error = %v", err)
	}
	if key != "X-Api-Key" || value != "abc=def" {
		t.Errorf("parseHeaderFlag() = %q, %q", key, value)
	}
	if _, _, err := parseHeaderFlag("novalue"); err == nil {
		t.Error("expected error for header without '='")
	}
}
