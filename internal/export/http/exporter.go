// Package http streams rows as NDJSON to an HTTP collector such as Vector.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	processor "github.com/ethpandaops/go-batch-processor"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/loadtimes/internal/version"
)

// Exporter POSTs batches of rows as NDJSON. It implements
// processor.ItemExporter.
type Exporter[T any] struct {
	cfg        Config
	client     *http.Client
	compressor *Compressor
	log        logrus.FieldLogger
}

var _ processor.ItemExporter[any] = (*Exporter[any])(nil)

// NewExporter validates cfg and builds the HTTP client.
func NewExporter[T any](log logrus.FieldLogger, cfg Config) (*Exporter[T], error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	compressor, err := NewCompressor(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}

	return &Exporter[T]{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Workers * 2,
				MaxIdleConnsPerHost: cfg.Workers * 2,
				IdleConnTimeout:     90 * time.Second,
				DisableKeepAlives:   !cfg.IsKeepAlive(),
			},
			Timeout: cfg.ExportTimeout,
		},
		compressor: compressor,
		log:        log.WithField("component", "http_exporter"),
	}, nil
}

// encodeNDJSON writes one JSON document per line, skipping nil items.
func encodeNDJSON[T any](items []*T) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(items) * 192)

	enc := json.NewEncoder(&buf)

	for _, item := range items {
		if item == nil {
			continue
		}

		if err := enc.Encode(item); err != nil {
			return nil, fmt.Errorf("encoding item: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// ExportItems sends items in a single request.
func (e *Exporter[T]) ExportItems(ctx context.Context, items []*T) error {
	if len(items) == 0 {
		return nil
	}

	data, err := encodeNDJSON(items)
	if err != nil {
		return err
	}

	body, err := e.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("compressing data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Address, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-ndjson")
	req.Header.Set("User-Agent", version.UserAgent())

	if enc := e.compressor.ContentEncoding(); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}

	for k, v := range e.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	e.log.WithFields(logrus.Fields{
		"items":      len(items),
		"bytes":      len(data),
		"compressed": len(body),
	}).Debug("Exported batch via HTTP")

	return nil
}

// Shutdown releases the compressor.
func (e *Exporter[T]) Shutdown(_ context.Context) error {
	if e.compressor != nil {
		return e.compressor.Close()
	}

	return nil
}

// NewProcessor wraps an Exporter in a batching processor configured from
// cfg. The caller starts it with Start and stops it with Shutdown.
func NewProcessor[T any](
	log logrus.FieldLogger,
	cfg Config,
	name string,
) (*processor.BatchItemProcessor[T], error) {
	exporter, err := NewExporter[T](log, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating exporter: %w", err)
	}

	cfg.ApplyDefaults()

	proc, err := processor.NewBatchItemProcessor[T](
		exporter,
		name,
		log,
		processor.WithMaxQueueSize(cfg.MaxQueueSize),
		processor.WithBatchTimeout(cfg.BatchTimeout),
		processor.WithExportTimeout(cfg.ExportTimeout),
		processor.WithMaxExportBatchSize(cfg.BatchSize),
		processor.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processor: %w", err)
	}

	return proc, nil
}
