package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/loadtimes/internal/export"
	httpexport "github.com/ethpandaops/loadtimes/internal/export/http"
)

// Config configures periodic reporting.
type Config struct {
	// Interval is the report window. Zero disables reporting.
	// Defaults to 10s.
	Interval time.Duration `yaml:"interval"`

	// ClientName is stored with every row as meta_client_name.
	ClientName string `yaml:"client_name"`

	// SkipEmpty leaves buckets without hits out of a window's rows.
	SkipEmpty bool `yaml:"skip_empty"`

	// Log logs every report. Defaults to true.
	Log *bool `yaml:"log"`

	// ClickHouse configures the ClickHouse exporter.
	ClickHouse export.ClickHouseConfig `yaml:"clickhouse"`

	// HTTP configures the NDJSON exporter.
	HTTP httpexport.Config `yaml:"http"`
}

// DefaultConfig returns a Config that only logs.
func DefaultConfig() Config {
	logReports := true

	return Config{
		Interval: 10 * time.Second,
		Log:      &logReports,
		ClickHouse: export.ClickHouseConfig{
			Endpoint: "localhost:9000",
			Database: "default",
			Table:    export.DefaultTable,
		},
		HTTP: httpexport.DefaultConfig(),
	}
}

// LogEnabled reports whether the log exporter is on.
func (c *Config) LogEnabled() bool {
	return c.Log == nil || *c.Log
}

// Validate checks the enabled exporters.
func (c *Config) Validate() error {
	if c.Interval < 0 {
		return errors.New("report.interval must not be negative")
	}

	if c.Interval > 0 && c.Interval < time.Millisecond {
		return errors.New("report.interval must be at least 1ms")
	}

	if c.ClickHouse.Enabled && c.ClickHouse.Endpoint == "" {
		return errors.New("report.clickhouse.endpoint is required when enabled")
	}

	if ch := c.ClickHouse; ch.Enabled && ch.Migrate && ch.Table != "" && ch.Table != export.DefaultTable {
		return fmt.Errorf(
			"report.clickhouse.table must be %q when migrate is enabled, got %q",
			export.DefaultTable, ch.Table,
		)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("report.http: %w", err)
	}

	return nil
}

// BuildExporters creates the exporters enabled in cfg. Nothing is started.
func BuildExporters(
	log logrus.FieldLogger,
	cfg Config,
	health *export.HealthMetrics,
) ([]Exporter, error) {
	exporters := make([]Exporter, 0, 3)

	if cfg.LogEnabled() {
		exporters = append(exporters, NewLogExporter(log))
	}

	if cfg.ClickHouse.Enabled {
		writer := export.NewClickHouseWriter(log, cfg.ClickHouse)
		exporters = append(exporters, NewClickHouseExporter(log, writer, health))
	}

	if cfg.HTTP.Enabled {
		e, err := NewHTTPExporter(log, cfg.HTTP)
		if err != nil {
			return nil, err
		}

		exporters = append(exporters, e)
	}

	return exporters, nil
}
