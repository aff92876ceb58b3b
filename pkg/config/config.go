// Package config loads the engine's runtime configuration: where the
// network lives, how parallel the solve loop runs, solver settings and
// which reporting sinks are active. Network settings (bases, slack,
// per-unit flags) are not here; they belong to the imported network.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from the yaml forms
// "250ms", "30s", "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the standard library form.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// SolverConfig tunes the Newton-Raphson solver.
type SolverConfig struct {
	// Tolerance is the convergence threshold on the largest absolute
	// power mismatch, per-unit. Zero keeps the solver default.
	Tolerance float64 `yaml:"tolerance" validate:"gte=0"`
	// MaxIterations bounds the Newton steps per timestamp. Zero keeps
	// the solver default.
	MaxIterations int `yaml:"max_iterations" validate:"gte=0"`
	// Timeout bounds one timestamp's solve; a timestamp that exceeds it
	// is recorded as failed and the run continues. Zero disables it.
	Timeout Duration `yaml:"timeout" validate:"gte=0"`
}

// S3Config configures the results archive bucket. Credentials come from
// the default AWS chain unless a static key pair is set.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	// AccessKeyID plus the GRIDFLOW_S3_SECRET_KEY environment variable
	// select static credentials instead of the default chain.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"-"`
}

// ExportConfig selects the reporting sinks. The CSV exporter is always
// on; the others activate when their target is configured.
type ExportConfig struct {
	// Dir receives the CSV result files.
	Dir string `yaml:"dir" validate:"required"`
	// PostgresDSN activates the Postgres sink when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`
	// S3 activates the artifact archive when Bucket is non-empty.
	S3 S3Config `yaml:"s3"`
	// PublishAddr activates the progress publisher when non-empty,
	// e.g. "tcp://0.0.0.0:5600" or "inproc://gridflow".
	PublishAddr string `yaml:"publish_addr"`
}

// Config is the engine's runtime configuration.
type Config struct {
	// NetworkDir holds the network CSV files to import.
	NetworkDir string `yaml:"network_dir" validate:"required"`
	// Workers sets solve parallelism; 0 or 1 runs sequentially.
	Workers int `yaml:"workers" validate:"gte=0"`

	Solver SolverConfig `yaml:"solver"`
	Export ExportConfig `yaml:"export"`

	// Journal is the run journal path; empty disables journaling.
	Journal string `yaml:"journal"`
	// MetricsAddr is the diagnostics listen address; empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		NetworkDir: "./network",
		Workers:    1,
		Solver: SolverConfig{
			Tolerance:     1e-8,
			MaxIterations: 50,
		},
		Export: ExportConfig{
			Dir: "./results",
		},
		LogLevel: "info",
	}
}

// Load reads a yaml configuration file over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overlays secret-bearing settings from the environment so they
// stay out of config files.
func (c *Config) applyEnv() {
	if dsn := os.Getenv("GRIDFLOW_PG_DSN"); dsn != "" {
		c.Export.PostgresDSN = dsn
	}
	if key := os.Getenv("GRIDFLOW_S3_ACCESS_KEY"); key != "" {
		c.Export.S3.AccessKeyID = key
	}
	if secret := os.Getenv("GRIDFLOW_S3_SECRET_KEY"); secret != "" {
		c.Export.S3.SecretAccessKey = secret
	}
}
