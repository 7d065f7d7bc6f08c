package agent

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/loadtimes/internal/config"
	"github.com/ethpandaops/loadtimes/internal/export"
	"github.com/ethpandaops/loadtimes/internal/report"
	"github.com/ethpandaops/loadtimes/internal/times"
)

// Config is the top-level configuration for a loadtimes run.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Health configures the Prometheus metrics server. An empty address
	// disables it.
	Health export.HealthConfig `yaml:"health"`

	// Histogram configures the bucket boundaries.
	Histogram HistogramConfig `yaml:"histogram"`

	// Workers is the number of goroutines classifying intervals.
	// Defaults to 4.
	Workers int `yaml:"workers"`

	// QueueSize is the number of read but unclassified input lines.
	// Defaults to 4096.
	QueueSize int `yaml:"queue_size"`

	// Report configures periodic export of bucket counts.
	Report report.Config `yaml:"report"`
}

// HistogramConfig names a histogram and defines its steps, either as
// named boundaries or as a geometric series.
type HistogramConfig struct {
	// Name labels the histogram in logs, metrics and reports.
	Name string `yaml:"name"`

	// Steps maps a name to each boundary. Accepts a YAML mapping or a
	// string such as "slow : 1s  medium : 500ms".
	Steps *config.Switch[string, time.Duration] `yaml:"steps"`

	// Simple spreads boundaries geometrically between max and min.
	Simple *times.Simple `yaml:"simple"`
}

// NewSteps returns an empty step switch ordered by name.
func NewSteps() *config.Switch[string, time.Duration] {
	return config.NewOrderedSwitch[string, time.Duration](config.String, config.Duration)
}

// Generator returns the step source selected by the configuration.
func (h *HistogramConfig) Generator() (times.Generator, error) {
	if h.Simple != nil {
		return *h.Simple, nil
	}

	if h.Steps == nil || h.Steps.Len() == 0 {
		return nil, errors.New("histogram has no steps")
	}

	return times.FromDense(config.NewDense[string, time.Duration](h.Steps)), nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Health: export.HealthConfig{
			Addr: ":9090",
		},
		Histogram: HistogramConfig{
			Name:  "answ_times",
			Steps: NewSteps(),
		},
		Workers:   4,
		QueueSize: 4096,
		Report:    report.DefaultConfig(),
	}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates a YAML document over DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for required fields and consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Histogram.Name) == "" {
		return errors.New("histogram.name is required")
	}

	hasSteps := c.Histogram.Steps != nil && c.Histogram.Steps.Len() > 0

	if hasSteps && c.Histogram.Steps.Len() > times.MaxSteps {
		return fmt.Errorf("histogram.steps must have at most %d entries", times.MaxSteps)
	}

	switch {
	case hasSteps && c.Histogram.Simple != nil:
		return errors.New("histogram.steps and histogram.simple are mutually exclusive")
	case !hasSteps && c.Histogram.Simple == nil:
		return errors.New("one of histogram.steps or histogram.simple is required")
	}

	if s := c.Histogram.Simple; s != nil {
		if s.Count <= 0 {
			return errors.New("histogram.simple.count must be positive")
		}

		if s.Count > times.MaxSteps {
			return fmt.Errorf("histogram.simple.count must be at most %d", times.MaxSteps)
		}

		if s.Min <= 0 || (s.Count > 1 && s.Min >= s.Max) {
			return errors.New("histogram.simple needs 0 < min < max")
		}
	}

	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	if c.QueueSize <= 0 {
		return errors.New("queue_size must be positive")
	}

	if err := c.Report.Validate(); err != nil {
		return err
	}

	return nil
}
