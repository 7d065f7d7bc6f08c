package export

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
)

// DefaultTable is the table created by the embedded migrations.
const DefaultTable = "latency_buckets"

// ClickHouseConfig configures the ClickHouse writer.
type ClickHouseConfig struct {
	// Enabled turns on ClickHouse export of bucket reports.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the ClickHouse native protocol address.
	Endpoint string `yaml:"endpoint"`

	// Database is the target database name.
	Database string `yaml:"database"`

	// Table is the target table name. Must be DefaultTable when Migrate
	// is set.
	Table string `yaml:"table"`

	// Username for ClickHouse authentication.
	Username string `yaml:"username"`

	// Password for ClickHouse authentication.
	Password string `yaml:"password"`

	// DialTimeout bounds connection setup. Defaults to 5s.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// Migrate applies the embedded schema migrations on start.
	Migrate bool `yaml:"migrate"`
}

// DSN returns the clickhouse:// connection string used for migrations.
func (c ClickHouseConfig) DSN() string {
	auth := ""
	if c.Username != "" {
		auth = c.Username
		if c.Password != "" {
			auth += ":" + c.Password
		}

		auth += "@"
	}

	return fmt.Sprintf("clickhouse://%s%s/%s", auth, c.Endpoint, c.Database)
}

// ClickHouseWriter owns the ClickHouse connection.
type ClickHouseWriter struct {
	log  logrus.FieldLogger
	cfg  ClickHouseConfig
	conn clickhouse.Conn
}

// NewClickHouseWriter creates a new ClickHouse writer.
func NewClickHouseWriter(
	log logrus.FieldLogger,
	cfg ClickHouseConfig,
) *ClickHouseWriter {
	if cfg.Database == "" {
		cfg.Database = "default"
	}

	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	return &ClickHouseWriter{
		log: log.WithField("component", "clickhouse"),
		cfg: cfg,
	}
}

// Start opens and pings the connection.
func (w *ClickHouseWriter) Start(ctx context.Context) error {
	opts := &clickhouse.Options{
		Addr: []string{w.cfg.Endpoint},
		Auth: clickhouse.Auth{
			Database: w.cfg.Database,
			Username: w.cfg.Username,
			Password: w.cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:  w.cfg.DialTimeout,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return fmt.Errorf("opening ClickHouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()

		return fmt.Errorf("pinging ClickHouse: %w", err)
	}

	w.conn = conn

	w.log.WithField("endpoint", w.cfg.Endpoint).
		Info("ClickHouse writer connected")

	return nil
}

// Conn returns the underlying connection, nil before Start.
func (w *ClickHouseWriter) Conn() clickhouse.Conn {
	return w.conn
}

// Config returns the writer configuration with defaults applied.
func (w *ClickHouseWriter) Config() ClickHouseConfig {
	return w.cfg
}

// Stop closes the connection.
func (w *ClickHouseWriter) Stop() error {
	if w.conn != nil {
		return w.conn.Close()
	}

	return nil
}
