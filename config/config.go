package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/jonwraymond/adminops/observe"
)

// Prefix is the namespace of every adminops variable.
const Prefix = "ADMINOPS_"

// Config is the process-wide configuration.
type Config struct {
	// ProfileNames lists the configured profiles.
	ProfileNames []string `env:"PROFILES, default=default"`

	// DefaultProfile is used when a command names none.
	DefaultProfile string `env:"DEFAULT_PROFILE, default=default"`

	Observe ObserveSettings `env:", prefix=OBSERVE_"`

	// Profiles is filled by LoadWith, keyed by name.
	Profiles map[string]Profile
}

// ObserveSettings configures telemetry and logging.
type ObserveSettings struct {
	ServiceName string `env:"SERVICE_NAME, default=adminops"`

	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogFormat string `env:"LOG_FORMAT, default=console"`

	TracingEnabled  bool    `env:"TRACING_ENABLED, default=false"`
	TracingExporter string  `env:"TRACING_EXPORTER, default=otlp"`
	SamplePct       float64 `env:"TRACING_SAMPLE_PCT, default=1.0"`

	MetricsEnabled  bool   `env:"METRICS_ENABLED, default=false"`
	MetricsExporter string `env:"METRICS_EXPORTER, default=otlp"`
}

// ObserveConfig converts the settings to an observe.Config.
func (o ObserveSettings) ObserveConfig(version string) observe.Config {
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingEnabled,
			Exporter:  o.TracingExporter,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsEnabled,
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
			Format:  o.LogFormat,
		},
	}
}

// Load reads the configuration and every listed profile from the OS
// environment.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration from lookup.
func LoadWith(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, lookup),
	}); err != nil {
		return cfg, err
	}

	cfg.Profiles = make(map[string]Profile, len(cfg.ProfileNames))
	for _, name := range cfg.ProfileNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, err := LoadProfile(ctx, name, lookup)
		if err != nil {
			return cfg, err
		}
		cfg.Profiles[name] = p
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if len(c.Profiles) > 0 {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return fmt.Errorf("%w: default profile %q is not listed in %sPROFILES", ErrInvalidValue, c.DefaultProfile, Prefix)
		}
	}
	obs := c.Observe.ObserveConfig("")
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("invalid observe configuration: %w", err)
	}
	return nil
}

var profileNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// envPrefix returns the variable prefix for a profile.
func envPrefix(name string) string {
	return Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
}
