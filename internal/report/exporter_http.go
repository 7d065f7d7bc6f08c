package report

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	httpexport "github.com/ethpandaops/loadtimes/internal/export/http"
)

const timeFormat = "2006-01-02 15:04:05.000"

// RowJSON is the NDJSON schema of one bucket row.
type RowJSON struct {
	UpdatedDateTime string `json:"updated_date_time"`
	WindowStart     string `json:"window_start"`
	IntervalMs      uint32 `json:"interval_ms"`
	Histogram       string `json:"histogram"`
	Bucket          uint16 `json:"bucket"`
	Label           string `json:"label"`
	LowerNs         int64  `json:"lower_ns"`
	UpperNs         int64  `json:"upper_ns"`
	Count           uint64 `json:"count"`
	Total           uint64 `json:"total"`
	MetaClientName  string `json:"meta_client_name,omitempty"`
}

// rowQueue is the part of the batch processor the exporter drives.
type rowQueue interface {
	Start(ctx context.Context)
	Write(ctx context.Context, items []*RowJSON) error
	Shutdown(ctx context.Context) error
}

// HTTPExporter queues rows on a batch processor that POSTs them as
// NDJSON.
type HTTPExporter struct {
	log   logrus.FieldLogger
	queue rowQueue
}

var _ Exporter = (*HTTPExporter)(nil)

// NewHTTPExporter creates the batch processor for cfg.
func NewHTTPExporter(log logrus.FieldLogger, cfg httpexport.Config) (*HTTPExporter, error) {
	proc, err := httpexport.NewProcessor[RowJSON](log, cfg, "report_http")
	if err != nil {
		return nil, fmt.Errorf("creating HTTP processor: %w", err)
	}

	return newHTTPExporter(log, proc), nil
}

func newHTTPExporter(log logrus.FieldLogger, queue rowQueue) *HTTPExporter {
	return &HTTPExporter{
		log:   log.WithField("exporter", "http"),
		queue: queue,
	}
}

// Name returns the exporter identifier.
func (e *HTTPExporter) Name() string {
	return "http"
}

// Start starts the processor workers.
func (e *HTTPExporter) Start(ctx context.Context) error {
	e.queue.Start(ctx)

	return nil
}

// Stop drains the queue.
func (e *HTTPExporter) Stop() error {
	return e.queue.Shutdown(context.Background())
}

// Export queues the report rows.
func (e *HTTPExporter) Export(ctx context.Context, rep Report) error {
	if len(rep.Rows) == 0 {
		return nil
	}

	rows := make([]*RowJSON, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		rows = append(rows, toJSON(rep, row))
	}

	if err := e.queue.Write(ctx, rows); err != nil {
		return fmt.Errorf("queueing %d rows: %w", len(rows), err)
	}

	return nil
}

func toJSON(rep Report, row Row) *RowJSON {
	return &RowJSON{
		UpdatedDateTime: rep.UpdatedTime.UTC().Format(timeFormat),
		WindowStart:     rep.Window.Start.UTC().Format(timeFormat),
		IntervalMs:      rep.Window.IntervalMs(),
		Histogram:       rep.Histogram,
		Bucket:          row.Bucket,
		Label:           row.Label,
		LowerNs:         row.LowerNs,
		UpperNs:         row.UpperNs,
		Count:           row.Count,
		Total:           row.Total,
		MetaClientName:  rep.ClientName,
	}
}
