package report

import "context"

// Exporter ships reports to a destination.
type Exporter interface {
	// Name returns the exporter's identifier for logging and metrics.
	Name() string
	// Start prepares the destination.
	Start(ctx context.Context) error
	// Export writes one report.
	Export(ctx context.Context, rep Report) error
	// Stop flushes and releases the destination.
	Stop() error
}
