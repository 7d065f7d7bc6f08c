package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/loadtimes/internal/export"
)

// ClickHouseExporter inserts report rows with one batch per report.
type ClickHouseExporter struct {
	log    logrus.FieldLogger
	writer *export.ClickHouseWriter
	health *export.HealthMetrics
}

var _ Exporter = (*ClickHouseExporter)(nil)

// NewClickHouseExporter creates an exporter that owns writer.
func NewClickHouseExporter(
	log logrus.FieldLogger,
	writer *export.ClickHouseWriter,
	health *export.HealthMetrics,
) *ClickHouseExporter {
	return &ClickHouseExporter{
		log:    log.WithField("exporter", "clickhouse"),
		writer: writer,
		health: health,
	}
}

// Name returns the exporter identifier.
func (e *ClickHouseExporter) Name() string {
	return "clickhouse"
}

// Start connects the writer.
func (e *ClickHouseExporter) Start(ctx context.Context) error {
	if err := e.writer.Start(ctx); err != nil {
		return err
	}

	if e.health != nil {
		e.health.ClickHouseConnected.Set(1)
	}

	return nil
}

// Stop closes the writer.
func (e *ClickHouseExporter) Stop() error {
	if e.health != nil {
		e.health.ClickHouseConnected.Set(0)
	}

	return e.writer.Stop()
}

func insertQuery(cfg export.ClickHouseConfig) string {
	return fmt.Sprintf(`INSERT INTO %s.%s (
		updated_date_time, window_start, interval_ms,
		histogram, bucket, label, lower_ns, upper_ns,
		count, total, meta_client_name
	)`, cfg.Database, cfg.Table)
}

// Export writes the report rows in a single batch.
func (e *ClickHouseExporter) Export(ctx context.Context, rep Report) error {
	if len(rep.Rows) == 0 {
		return nil
	}

	conn := e.writer.Conn()
	if conn == nil {
		return errors.New("clickhouse writer is not started")
	}

	batch, err := conn.PrepareBatch(ctx, insertQuery(e.writer.Config()))
	if err != nil {
		return fmt.Errorf("preparing batch: %w", err)
	}

	for _, row := range rep.Rows {
		if err := batch.Append(
			rep.UpdatedTime, rep.Window.Start, rep.Window.IntervalMs(),
			rep.Histogram, row.Bucket, row.Label, row.LowerNs, row.UpperNs,
			row.Count, row.Total, rep.ClientName,
		); err != nil {
			return fmt.Errorf("appending bucket %d: %w", row.Bucket, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending batch: %w", err)
	}

	e.log.WithField("rows", len(rep.Rows)).Debug("Inserted bucket rows")

	return nil
}
