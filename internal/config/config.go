package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultAPIURL         = "http://localhost:8080"
	DefaultReadinessCheck = "Keycloak health check"
	DefaultPause          = time.Second
	DefaultTimeout        = 30 * time.Second
	DefaultRampDown       = 30 * time.Second
)

type Config struct {
	APIURL           string            `mapstructure:"api_url"`
	Headers          map[string]string `mapstructure:"headers"`
	Stages           []Stage           `mapstructure:"stages"`
	StartVUs         int               `mapstructure:"start_vus"`
	GracefulRampDown time.Duration     `mapstructure:"graceful_ramp_down"`
	Pause            time.Duration     `mapstructure:"pause"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	MaxIterationRate int               `mapstructure:"max_iteration_rate"`
	Arrival          ArrivalConfig     `mapstructure:"arrival"`
	ReadinessCheck   string            `mapstructure:"readiness_check"`
	Thresholds       []string          `mapstructure:"thresholds"`
	Auth             AuthConfig        `mapstructure:"auth"`
	Tracing          TracingConfig     `mapstructure:"tracing"`
	JSONOutput       bool              `mapstructure:"json_output"`
	LogErrors        bool              `mapstructure:"log_errors"`
	LogLevel         string            `mapstructure:"log_level"`
	MetricsAddr      string            `mapstructure:"metrics_addr"`
	ConfigFile       string            `mapstructure:"-"`
}

// Stage is one segment of the virtual-user ramp.
type Stage struct {
	Duration time.Duration `mapstructure:"duration"`
	Target   int           `mapstructure:"target"`
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
}

type AuthType string

const (
	AuthTypeStatic                  AuthType = "static"
	AuthTypeOAuth2ClientCredentials AuthType = "oauth2_client_credentials"
)

type AuthConfig struct {
	Type         AuthType `mapstructure:"type"`
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
	StaticToken  string   `mapstructure:"static_token"`
}

// TracingConfig controls OpenTelemetry export for probe requests.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether spans should be created at all.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || t.Propagate
}

// ShouldPropagate reports whether W3C trace headers are sent to the target.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// DefaultStages mirrors the stock ramp: up to 2 VUs, up to 4 VUs, down to 0.
func DefaultStages() []Stage {
	return []Stage{
		{Duration: 30 * time.Second, Target: 2},
		{Duration: time.Minute, Target: 4},
		{Duration: 30 * time.Second, Target: 0},
	}
}

// DefaultThresholds fails the run on slow p95 latency or an error rate of 1% or more.
func DefaultThresholds() []string {
	return []string{
		"http_req_duration:p(95)<500",
		"errors:rate<0.01",
	}
}

// TotalDuration returns the sum of all stage durations.
func (c Config) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range c.Stages {
		if s.Duration > 0 {
			total += s.Duration
		}
	}
	return total
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.APIURL) == "" {
		issues = append(issues, "api_url is required (use --help for usage information)")
	} else if u, err := url.Parse(c.APIURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("api_url %q must be an absolute http(s) URL", c.APIURL))
	}

	if c.StartVUs < 0 {
		issues = append(issues, "start_vus must be >= 0")
	}
	if c.GracefulRampDown < 0 {
		issues = append(issues, "graceful_ramp_down must be >= 0")
	}
	if c.Pause < 0 {
		issues = append(issues, "pause must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.MaxIterationRate < 0 {
		issues = append(issues, "max_iteration_rate must be >= 0")
	}
	if strings.TrimSpace(c.ReadinessCheck) == "" {
		issues = append(issues, "readiness_check must not be empty")
	}

	maxVUs := c.StartVUs
	for _, s := range c.Stages {
		if s.Target > maxVUs {
			maxVUs = s.Target
		}
	}
	if maxVUs > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: High virtual-user count configured (%d VUs). Ensure you have authorization to test the target system.\n", maxVUs)
	}

	issues = append(issues, validateStages(c.Stages)...)
	issues = append(issues, validateArrivalConfig(c.Arrival)...)
	issues = append(issues, validateAuthConfig(c.Auth)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			issues = append(issues, fmt.Sprintf("log_level: %v", err))
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateStages(stages []Stage) []string {
	if len(stages) == 0 {
		return []string{"at least one stage is required"}
	}
	var issues []string
	var total time.Duration
	for idx, s := range stages {
		if s.Duration < 0 {
			issues = append(issues, fmt.Sprintf("stages[%d]: duration must be >= 0", idx))
		} else {
			total += s.Duration
		}
		if s.Target < 0 {
			issues = append(issues, fmt.Sprintf("stages[%d]: target must be >= 0", idx))
		}
	}
	if len(issues) == 0 && total <= 0 {
		issues = append(issues, "stages: total duration must be > 0")
	}
	return issues
}

func validateArrivalConfig(arr ArrivalConfig) []string {
	model := arr.Model
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateAuthConfig(auth AuthConfig) []string {
	var issues []string
	switch auth.Type {
	case "":
		return nil
	case AuthTypeStatic:
		if strings.TrimSpace(auth.StaticToken) == "" {
			issues = append(issues, "auth: static_token is required for static")
		}
	case AuthTypeOAuth2ClientCredentials:
		if strings.TrimSpace(auth.TokenURL) == "" {
			issues = append(issues, "auth: token_url is required for oauth2_client_credentials")
		}
		if strings.TrimSpace(auth.ClientID) == "" {
			issues = append(issues, "auth: client_id is required for oauth2_client_credentials")
		}
		if strings.TrimSpace(auth.ClientSecret) == "" {
			issues = append(issues, "auth: client_secret is required for oauth2_client_credentials")
		}
	default:
		issues = append(issues, fmt.Sprintf("auth: unsupported type %q", auth.Type))
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
