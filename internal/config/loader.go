package config

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files, environment and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

const envPrefix = "healthfire"

// envKeys are the settings that can be supplied as HEALTHFIRE_* variables.
var envKeys = []string{
	"api_url",
	"token",
	"timeout",
	"pause",
	"start_vus",
	"graceful_ramp_down",
	"max_iteration_rate",
	"readiness_check",
	"json_output",
	"log_errors",
	"log_level",
	"metrics_addr",
	"auth.type",
	"auth.token_url",
	"auth.client_id",
	"auth.client_secret",
	"tracing.endpoint",
	"tracing.protocol",
}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		APIURL:           DefaultAPIURL,
		Headers:          map[string]string{},
		Stages:           DefaultStages(),
		GracefulRampDown: DefaultRampDown,
		Pause:            DefaultPause,
		Timeout:          DefaultTimeout,
		Arrival:          ArrivalConfig{Model: ArrivalModelUniform},
		ReadinessCheck:   DefaultReadinessCheck,
		Thresholds:       DefaultThresholds(),
		Tracing:          TracingConfig{SampleRate: 1.0},
		LogLevel:         "info",
	}
}

// Load parses command-line arguments, HEALTHFIRE_* environment variables and an
// optional configuration file to produce a Config. Flags win over the
// environment, which wins over the file.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	cfgViper.SetEnvPrefix(envPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.ReadinessCheck = strings.TrimSpace(cfg.ReadinessCheck)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file or the environment to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "apiurl", "api_url", "api-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("api_url: %w", err)
		}
		cfg.APIURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "stages"); ok {
		stages, err := parseStages(raw)
		if err != nil {
			return fmt.Errorf("stages: %w", err)
		}
		cfg.Stages = stages
	}

	if raw, ok := lookupSetting(settings, "startvus", "start_vus", "start-vus"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("start_vus: %w", err)
		}
		cfg.StartVUs = val
	}

	durations := []struct {
		name   string
		keys   []string
		target *time.Duration
	}{
		{"graceful_ramp_down", []string{"gracefulrampdown", "graceful_ramp_down", "graceful-ramp-down"}, &cfg.GracefulRampDown},
		{"pause", []string{"pause", "sleep"}, &cfg.Pause},
		{"timeout", []string{"timeout"}, &cfg.Timeout},
	}
	for _, d := range durations {
		if raw, ok := lookupSetting(settings, d.keys...); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", d.name, err)
			}
			*d.target = dur
		}
	}

	if raw, ok := lookupSetting(settings, "maxiterationrate", "max_iteration_rate", "max-iteration-rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_iteration_rate: %w", err)
		}
		cfg.MaxIterationRate = val
	}

	if raw, ok := lookupSetting(settings, "arrival"); ok {
		arrival, err := parseArrival(raw)
		if err != nil {
			return fmt.Errorf("arrival: %w", err)
		}
		if arrival.Model != "" {
			cfg.Arrival = arrival
		}
	}

	if raw, ok := lookupSetting(settings, "readinesscheck", "readiness_check", "readiness-check"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("readiness_check: %w", err)
		}
		cfg.ReadinessCheck = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := parseThresholds(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "auth"); ok {
		auth, err := parseAuth(raw)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		cfg.Auth = auth
	}

	if raw, ok := lookupSetting(settings, "token"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.Auth = AuthConfig{Type: AuthTypeStatic, StaticToken: strings.TrimSpace(val)}
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	bools := []struct {
		keys   []string
		target *bool
	}{
		{[]string{"jsonoutput", "json_output", "json-output"}, &cfg.JSONOutput},
		{[]string{"logerrors", "log_errors", "log-errors"}, &cfg.LogErrors},
	}
	for _, b := range bools {
		if raw, ok := lookupSetting(settings, b.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", b.keys[1], err)
			}
			*b.target = val
		}
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "metricsaddr", "metrics_addr", "metrics-addr"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	return nil
}

func parseStages(value interface{}) ([]Stage, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	stages := make([]Stage, 0, len(items))
	for idx, item := range items {
		if s, ok := item.(string); ok {
			stage, err := ParseStage(s)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", idx, err)
			}
			stages = append(stages, stage)
			continue
		}
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		var stage Stage
		if raw, ok := lookupSetting(entry, "duration"); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d: duration: %w", idx, err)
			}
			stage.Duration = dur
		}
		if raw, ok := lookupSetting(entry, "target", "vus"); ok {
			val, err := asInt(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d: target: %w", idx, err)
			}
			stage.Target = val
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// ParseStage parses the compact "duration:target" form, e.g. "30s:2".
func ParseStage(s string) (Stage, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return Stage{}, fmt.Errorf("invalid stage %q (expected duration:target, e.g. 30s:2)", s)
	}
	dur, err := time.ParseDuration(strings.TrimSpace(parts[0]))
	if err != nil {
		return Stage{}, fmt.Errorf("invalid stage duration %q: %w", parts[0], err)
	}
	target, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Stage{}, fmt.Errorf("invalid stage target %q: %w", parts[1], err)
	}
	return Stage{Duration: dur, Target: target}, nil
}

// parseThresholds accepts either a flat list ("errors:rate<0.01") or a map from
// metric name to one or more expressions ({errors: ["rate<0.01"]}).
func parseThresholds(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}, map[interface{}]interface{}:
		entries, err := toStringKeyMap(v)
		if err != nil {
			return nil, err
		}
		metrics := make([]string, 0, len(entries))
		for metric := range entries {
			metrics = append(metrics, metric)
		}
		sort.Strings(metrics)
		var result []string
		for _, metric := range metrics {
			exprs, err := asStringSlice(entries[metric])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", metric, err)
			}
			for _, expr := range exprs {
				result = append(result, metric+":"+strings.TrimSpace(expr))
			}
		}
		return result, nil
	default:
		return asStringSlice(value)
	}
}

func parseArrival(value interface{}) (ArrivalConfig, error) {
	switch v := value.(type) {
	case nil:
		return ArrivalConfig{}, nil
	case string:
		return ArrivalConfig{Model: ArrivalModel(strings.ToLower(strings.TrimSpace(v)))}, nil
	default:
		settings, err := toStringKeyMap(value)
		if err != nil {
			return ArrivalConfig{}, err
		}
		var arrival ArrivalConfig
		if raw, ok := lookupSetting(settings, "model"); ok {
			val, err := asString(raw)
			if err != nil {
				return ArrivalConfig{}, fmt.Errorf("model: %w", err)
			}
			arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
		}
		return arrival, nil
	}
}

func parseAuth(value interface{}) (AuthConfig, error) {
	if value == nil {
		return AuthConfig{}, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return AuthConfig{}, err
	}

	var auth AuthConfig
	strs := []struct {
		keys   []string
		target *string
	}{
		{[]string{"tokenurl", "token_url", "token-url"}, &auth.TokenURL},
		{[]string{"clientid", "client_id", "client-id"}, &auth.ClientID},
		{[]string{"clientsecret", "client_secret", "client-secret"}, &auth.ClientSecret},
		{[]string{"statictoken", "static_token", "static-token"}, &auth.StaticToken},
	}
	for _, s := range strs {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asString(raw)
			if err != nil {
				return AuthConfig{}, fmt.Errorf("%s: %w", s.keys[1], err)
			}
			*s.target = strings.TrimSpace(val)
		}
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("type: %w", err)
		}
		auth.Type = AuthType(strings.ToLower(strings.TrimSpace(val)))
	}
	if raw, ok := lookupSetting(settings, "scopes"); ok {
		scopes, err := asStringSlice(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("scopes: %w", err)
		}
		auth.Scopes = scopes
	}
	return auth, nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}

	tracing := base
	strs := []struct {
		keys   []string
		target *string
	}{
		{[]string{"endpoint"}, &tracing.Endpoint},
		{[]string{"protocol"}, &tracing.Protocol},
		{[]string{"servicename", "service_name", "service-name"}, &tracing.ServiceName},
	}
	for _, s := range strs {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asString(raw)
			if err != nil {
				return TracingConfig{}, fmt.Errorf("%s: %w", s.keys[len(s.keys)-1], err)
			}
			*s.target = strings.TrimSpace(val)
		}
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = val
	}
	return tracing, nil
}
