package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/loadtimes/internal/config"
	"github.com/ethpandaops/loadtimes/internal/export"
	"github.com/ethpandaops/loadtimes/internal/mcount"
	"github.com/ethpandaops/loadtimes/internal/migrate"
	"github.com/ethpandaops/loadtimes/internal/report"
	"github.com/ethpandaops/loadtimes/internal/times"
)

// Agent classifies measured intervals into the configured histogram and
// reports the bucket counts.
type Agent interface {
	// Start initializes all components and starts accepting intervals.
	Start(ctx context.Context) error
	// Feed reads one interval per line from r until EOF or ctx is done.
	// On cancellation it returns at once, abandoning a Read that is still
	// blocked.
	Feed(ctx context.Context, r io.Reader) error
	// Stop finalizes the histogram, exports the last window and writes
	// the accumulated counts.
	Stop() error
	// Histogram returns the underlying histogram.
	Histogram() *times.Times
}

type agent struct {
	log      logrus.FieldLogger
	cfg      *Config
	out      io.Writer
	health   *export.HealthMetrics
	counts   *mcount.MultiCounter
	hist     *times.Times
	reporter *report.Reporter

	stopOnce sync.Once
}

// New builds the histogram and exporters. Final counts are written to
// out on Stop.
func New(log logrus.FieldLogger, cfg *Config, out io.Writer) (Agent, error) {
	health := export.NewHealthMetrics(log, cfg.Health)

	gen, err := cfg.Histogram.Generator()
	if err != nil {
		return nil, err
	}

	counts := mcount.New()
	counter := mcount.NewProm(health.BucketHits, cfg.Histogram.Name, counts)

	hist, err := times.New(log, cfg.Histogram.Name, gen, counter)
	if err != nil {
		return nil, err
	}

	exporters, err := report.BuildExporters(log, cfg.Report, health)
	if err != nil {
		return nil, fmt.Errorf("building exporters: %w", err)
	}

	return &agent{
		log:      log.WithField("component", "agent"),
		cfg:      cfg,
		out:      out,
		health:   health,
		counts:   counts,
		hist:     hist,
		reporter: report.NewReporter(log, cfg.Report, hist, counts, health, exporters...),
	}, nil
}

func (a *agent) Histogram() *times.Times {
	return a.hist
}

func (a *agent) Start(ctx context.Context) error {
	// 1. Start health metrics server.
	if a.cfg.Health.Addr != "" {
		if err := a.health.Start(ctx); err != nil {
			return fmt.Errorf("starting health metrics: %w", err)
		}
	}

	// 2. Apply the report schema.
	if ch := a.cfg.Report.ClickHouse; ch.Enabled && ch.Migrate {
		if err := migrate.New(a.log, ch.DSN()).Up(ctx); err != nil {
			return fmt.Errorf("migrating report schema: %w", err)
		}
	}

	// 3. Size the counters and start accepting hits.
	if err := a.hist.Init(); err != nil {
		return fmt.Errorf("initializing histogram: %w", err)
	}

	a.health.BucketCount.WithLabelValues(a.hist.Name()).Set(float64(a.hist.Tags().Len()))

	// 4. Start exporters and the report loop.
	if err := a.reporter.Start(ctx); err != nil {
		return fmt.Errorf("starting reporter: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"histogram": a.hist.Name(),
		"buckets":   a.hist.Tags().Len(),
		"workers":   a.cfg.Workers,
	}).Info("Agent started")

	return nil
}

func (a *agent) Feed(ctx context.Context, r io.Reader) error {
	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan string, a.cfg.QueueSize)

	g.Go(func() error {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			select {
			case lines <- line:
			case <-gctx.Done():
				return gctx.Err()
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading intervals: %w", err)
		}

		return nil
	})

	for i := 0; i < a.cfg.Workers; i++ {
		g.Go(func() error {
			for line := range lines {
				a.record(line)
			}

			return nil
		})
	}

	done := make(chan error, 1)

	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *agent) record(line string) {
	a.health.IntervalsReceived.Inc()

	interval, err := config.ParseText(config.Duration, line)
	if err != nil {
		a.health.IntervalParseErrors.Inc()
		a.log.WithError(err).WithField("line", line).Debug("Skipping malformed interval")

		return
	}

	if a.hist.State() != times.StateRunning {
		a.health.IntervalsDropped.Inc()
	}

	a.hist.Inc(interval)
}

func (a *agent) Stop() error {
	var errs []error

	a.stopOnce.Do(func() {
		start := time.Now()

		// Hits arriving from here on are dropped.
		a.hist.Fini()

		if err := a.reporter.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping reporter: %w", err))
		}

		if err := a.hist.StatPrint(a.out); err != nil {
			errs = append(errs, fmt.Errorf("printing stats: %w", err))
		}

		if err := a.health.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping health metrics: %w", err))
		}

		a.log.WithFields(logrus.Fields{
			"dropped":  a.hist.Dropped(),
			"duration": time.Since(start),
		}).Info("Agent stopped")
	})

	return errors.Join(errs...)
}
