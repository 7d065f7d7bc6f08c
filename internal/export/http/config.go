package http

import (
	"errors"
	"fmt"
	"time"
)

// Config configures the HTTP NDJSON exporter.
type Config struct {
	// Enabled enables the HTTP exporter.
	Enabled bool `yaml:"enabled"`

	// Address is the URL rows are POSTed to.
	Address string `yaml:"address"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers"`

	// Compression is one of none, gzip, zstd, zlib, snappy.
	// Defaults to gzip.
	Compression string `yaml:"compression"`

	// BatchSize is the maximum number of rows per request.
	// Defaults to 256.
	BatchSize int `yaml:"batch_size"`

	// BatchTimeout is the maximum time rows wait before being sent.
	// Defaults to 2s.
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	// ExportTimeout bounds a single request. Defaults to 30s.
	ExportTimeout time.Duration `yaml:"export_timeout"`

	// MaxQueueSize is the number of rows buffered before new rows are
	// dropped. Defaults to 8192.
	MaxQueueSize int `yaml:"max_queue_size"`

	// Workers is the number of concurrent senders. Defaults to 1.
	Workers int `yaml:"workers"`

	// KeepAlive enables HTTP keep-alive. Defaults to true.
	KeepAlive *bool `yaml:"keep_alive"`
}

// DefaultConfig returns a disabled Config with defaults filled in.
func DefaultConfig() Config {
	keepAlive := true

	return Config{
		Compression:   CompressionGzip,
		BatchSize:     256,
		BatchTimeout:  2 * time.Second,
		ExportTimeout: 30 * time.Second,
		MaxQueueSize:  8192,
		Workers:       1,
		KeepAlive:     &keepAlive,
	}
}

// ApplyDefaults fills unset fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()

	if c.Compression == "" {
		c.Compression = d.Compression
	}

	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}

	if c.BatchTimeout <= 0 {
		c.BatchTimeout = d.BatchTimeout
	}

	if c.ExportTimeout <= 0 {
		c.ExportTimeout = d.ExportTimeout
	}

	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}

	if c.Workers <= 0 {
		c.Workers = d.Workers
	}

	if c.KeepAlive == nil {
		c.KeepAlive = d.KeepAlive
	}
}

// Validate checks an enabled configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch {
	case c.Address == "":
		return errors.New("http address is required when enabled")
	case c.BatchSize <= 0:
		return errors.New("batch_size must be greater than 0")
	case c.MaxQueueSize <= 0:
		return errors.New("max_queue_size must be greater than 0")
	case c.BatchSize > c.MaxQueueSize:
		return errors.New("batch_size cannot be greater than max_queue_size")
	case c.Workers <= 0:
		return errors.New("workers must be greater than 0")
	}

	if _, ok := contentEncodings[c.Compression]; !ok &&
		c.Compression != "" && c.Compression != CompressionNone {
		return fmt.Errorf("invalid compression type: %s", c.Compression)
	}

	return nil
}

// IsKeepAlive reports whether HTTP keep-alive is enabled.
func (c *Config) IsKeepAlive() bool {
	return c.KeepAlive == nil || *c.KeepAlive
}
