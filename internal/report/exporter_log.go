package report

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogExporter logs one line per report and, at debug level, one line
// per non-empty bucket.
type LogExporter struct {
	log logrus.FieldLogger
}

var _ Exporter = (*LogExporter)(nil)

// NewLogExporter creates a LogExporter.
func NewLogExporter(log logrus.FieldLogger) *LogExporter {
	return &LogExporter{log: log.WithField("exporter", "log")}
}

// Name returns the exporter identifier.
func (e *LogExporter) Name() string { return "log" }

// Start is a no-op.
func (e *LogExporter) Start(_ context.Context) error { return nil }

// Stop is a no-op.
func (e *LogExporter) Stop() error { return nil }

// Export logs the report.
func (e *LogExporter) Export(_ context.Context, rep Report) error {
	log := e.log.WithFields(logrus.Fields{
		"histogram": rep.Histogram,
		"window":    rep.Window.Interval,
	})

	log.WithField("hits", rep.Hits()).Info("Window report")

	for _, row := range rep.Rows {
		if row.Count == 0 {
			continue
		}

		log.WithFields(logrus.Fields{
			"bucket": row.Label,
			"count":  row.Count,
			"total":  row.Total,
		}).Debug("Bucket")
	}

	return nil
}
