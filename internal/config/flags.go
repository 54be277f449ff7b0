package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "healthfire",
		Short:         "Load-test the readiness, liveness and health endpoints of a service",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("api-url", DefaultAPIURL, "Base URL of the service under test")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("token", "", "Static bearer token sent as the Authorization header")
	flags.String("readiness-check", DefaultReadinessCheck, "Name of the readiness check that must report UP")

	// Load profile flags
	flags.StringArray("stage", nil, "Load stage as duration:target VUs (repeatable, e.g. 30s:2)")
	flags.Int("start-vus", 0, "Virtual users active before the first stage")
	flags.Duration("graceful-ramp-down", DefaultRampDown, "Time an iteration may keep running after its VU is ramped down")
	flags.Duration("pause", DefaultPause, "Pause at the end of every iteration")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.Int("max-iteration-rate", 0, "Cap on iteration starts per second across all VUs (0 means unlimited)")
	flags.String("arrival-model", string(ArrivalModelUniform), "Pacing model used with --max-iteration-rate (uniform or poisson)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Run thresholds (repeatable, e.g. 'http_req_duration:p(95)<500')")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted summary")
	flags.Bool("log-errors", false, "Log every failed check group, not only exceptions")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("tracing-propagate", false, "Send W3C trace context headers to the target")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\nUsage: %s\n\nFlags:\n", cmd.Short, cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("api-url") {
		val, err := fs.GetString("api-url")
		if err != nil {
			return err
		}
		cfg.APIURL = strings.TrimSpace(val)
	}
	if fs.Changed("header") {
		values, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, raw := range values {
			key, value, err := parseHeaderFlag(raw)
			if err != nil {
				return err
			}
			cfg.Headers[key] = value
		}
	}
	if fs.Changed("token") {
		val, err := fs.GetString("token")
		if err != nil {
			return err
		}
		cfg.Auth = AuthConfig{Type: AuthTypeStatic, StaticToken: strings.TrimSpace(val)}
	}
	if fs.Changed("readiness-check") {
		val, err := fs.GetString("readiness-check")
		if err != nil {
			return err
		}
		cfg.ReadinessCheck = val
	}
	if fs.Changed("stage") {
		values, err := fs.GetStringArray("stage")
		if err != nil {
			return err
		}
		stages := make([]Stage, 0, len(values))
		for _, raw := range values {
			stage, err := ParseStage(raw)
			if err != nil {
				return err
			}
			stages = append(stages, stage)
		}
		cfg.Stages = stages
	}
	if fs.Changed("start-vus") {
		val, err := fs.GetInt("start-vus")
		if err != nil {
			return err
		}
		cfg.StartVUs = val
	}
	if err := overrideDuration(fs, "graceful-ramp-down", &cfg.GracefulRampDown); err != nil {
		return err
	}
	if err := overrideDuration(fs, "pause", &cfg.Pause); err != nil {
		return err
	}
	if err := overrideDuration(fs, "timeout", &cfg.Timeout); err != nil {
		return err
	}
	if fs.Changed("max-iteration-rate") {
		val, err := fs.GetInt("max-iteration-rate")
		if err != nil {
			return err
		}
		cfg.MaxIterationRate = val
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("threshold") {
		values, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = values
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("metrics-addr") {
		val, err := fs.GetString("metrics-addr")
		if err != nil {
			return err
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}
	return applyTracingFlags(&cfg.Tracing, fs)
}

func applyTracingFlags(t *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		t.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		t.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		t.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		t.Insecure = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		t.Propagate = val
	}
	return nil
}

func overrideDuration(fs *pflag.FlagSet, name string, target *time.Duration) error {
	if !fs.Changed(name) {
		return nil
	}
	val, err := fs.GetDuration(name)
	if err != nil {
		return err
	}
	*target = val
	return nil
}

func parseHeaderFlag(raw string) (string, string, error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid header %q (expected key=value)", raw)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return "", "", fmt.Errorf("invalid header %q (empty key)", raw)
	}
	return http.CanonicalHeaderKey(key), strings.TrimSpace(parts[1]), nil
}
