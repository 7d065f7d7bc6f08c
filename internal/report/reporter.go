package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/loadtimes/internal/export"
	"github.com/ethpandaops/loadtimes/internal/times"
)

// Reporter periodically snapshots a histogram's counter and exports the
// hits of each window.
type Reporter struct {
	log       logrus.FieldLogger
	interval  time.Duration
	source    Snapshotter
	health    *export.HealthMetrics
	exporters []Exporter
	now       func() time.Time

	mu          sync.Mutex
	builder     *Builder
	windowStart time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReporter creates a Reporter for the histogram h whose counts are
// read from source.
func NewReporter(
	log logrus.FieldLogger,
	cfg Config,
	h *times.Times,
	source Snapshotter,
	health *export.HealthMetrics,
	exporters ...Exporter,
) *Reporter {
	return &Reporter{
		log:       log.WithField("component", "reporter"),
		interval:  cfg.Interval,
		source:    source,
		health:    health,
		exporters: exporters,
		now:       time.Now,
		builder:   NewBuilder(h.Name(), cfg.ClientName, h.Steps(), cfg.SkipEmpty),
	}
}

// Start starts every exporter and, with a positive interval, the report
// loop. On error the exporters already started are stopped.
func (r *Reporter) Start(ctx context.Context) error {
	for i, e := range r.exporters {
		if err := e.Start(ctx); err != nil {
			for _, started := range r.exporters[:i] {
				_ = started.Stop()
			}

			return fmt.Errorf("starting %s exporter: %w", e.Name(), err)
		}
	}

	r.mu.Lock()
	r.windowStart = r.now()
	r.mu.Unlock()

	if r.interval <= 0 {
		r.log.Info("Periodic reporting disabled")

		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)

	r.log.WithFields(logrus.Fields{
		"interval":  r.interval,
		"exporters": len(r.exporters),
	}).Info("Reporter started")

	return nil
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.log.WithError(err).Warn("Report export failed")
			}
		}
	}
}

// Flush closes the current window and exports it. Every exporter is
// tried, the returned error joins their failures.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	now := r.now()
	rep := r.builder.Build(r.source.Snapshot(), Window{
		Start:    r.windowStart,
		Interval: now.Sub(r.windowStart),
	}, now)
	r.windowStart = now
	r.mu.Unlock()

	var errs []error

	for _, e := range r.exporters {
		start := time.Now()
		err := e.Export(ctx, rep)

		if r.health != nil {
			r.health.ExportDuration.WithLabelValues(e.Name()).Observe(time.Since(start).Seconds())

			if err != nil {
				r.health.ExportErrors.WithLabelValues(e.Name()).Inc()
			} else {
				r.health.ReportsExported.WithLabelValues(e.Name()).Inc()
			}
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// Stop ends the loop, exports the last partial window and stops every
// exporter.
func (r *Reporter) Stop() error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
		r.cancel = nil
	}

	var errs []error

	if err := r.Flush(context.Background()); err != nil {
		r.log.WithError(err).Error("Final report export failed")
		errs = append(errs, err)
	}

	for _, e := range r.exporters {
		if err := e.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s exporter: %w", e.Name(), err))
		}
	}

	return errors.Join(errs...)
}
