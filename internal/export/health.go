package export

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HealthConfig configures the Prometheus metrics server.
type HealthConfig struct {
	// Addr is the listen address for the metrics server.
	// Defaults to ":9090".
	Addr string `yaml:"addr"`
}

// HealthMetrics exposes Prometheus metrics for the run.
type HealthMetrics struct {
	log      logrus.FieldLogger
	addr     string
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry

	// Ingestion
	IntervalsReceived   prometheus.Counter
	IntervalsDropped    prometheus.Counter
	IntervalParseErrors prometheus.Counter

	// Histogram
	BucketHits  *prometheus.CounterVec // histogram, bucket, label
	BucketCount *prometheus.GaugeVec   // histogram

	// Export
	ReportsExported     *prometheus.CounterVec   // exporter
	ExportErrors        *prometheus.CounterVec   // exporter
	ExportDuration      *prometheus.HistogramVec // exporter
	ClickHouseConnected prometheus.Gauge

	running atomic.Bool
}

// NewHealthMetrics creates a new metrics server with every collector
// registered.
func NewHealthMetrics(
	log logrus.FieldLogger,
	cfg HealthConfig,
) *HealthMetrics {
	reg := prometheus.NewRegistry()

	h := &HealthMetrics{
		log:      log.WithField("component", "health"),
		addr:     cfg.Addr,
		registry: reg,

		IntervalsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadtimes",
			Name:      "intervals_received_total",
			Help:      "Total intervals read from the input.",
		}),
		IntervalsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadtimes",
			Name:      "intervals_dropped_total",
			Help:      "Total intervals that arrived outside the running state.",
		}),
		IntervalParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadtimes",
			Name:      "interval_parse_errors_total",
			Help:      "Total input lines that were not a valid interval.",
		}),
		BucketHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loadtimes",
				Name:      "bucket_hits_total",
				Help:      "Total intervals classified into each bucket.",
			},
			[]string{"histogram", "bucket", "label"},
		),
		BucketCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "loadtimes",
				Name:      "buckets",
				Help:      "Number of buckets per histogram.",
			},
			[]string{"histogram"},
		),
		ReportsExported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loadtimes",
				Name:      "reports_exported_total",
				Help:      "Total reports exported by exporter.",
			},
			[]string{"exporter"},
		),
		ExportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "loadtimes",
				Name:      "export_errors_total",
				Help:      "Total export errors by exporter.",
			},
			[]string{"exporter"},
		),
		ExportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "loadtimes",
				Name:      "export_duration_seconds",
				Help:      "Time to export one report by exporter.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}, // 1ms-1s
			},
			[]string{"exporter"},
		),
		ClickHouseConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loadtimes",
			Name:      "clickhouse_connected",
			Help:      "Whether the ClickHouse connection is established (1=yes, 0=no).",
		}),
	}

	reg.MustRegister(
		h.IntervalsReceived,
		h.IntervalsDropped,
		h.IntervalParseErrors,
		h.BucketHits,
		h.BucketCount,
		h.ReportsExported,
		h.ExportErrors,
		h.ExportDuration,
		h.ClickHouseConnected,
	)

	return h
}

// Registry returns the registry all collectors are registered with.
func (h *HealthMetrics) Registry() *prometheus.Registry {
	return h.registry
}

// Start begins serving /metrics, /healthz and pprof.
func (h *HealthMetrics) Start(_ context.Context) error {
	if h.addr == "" {
		h.addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		h.registry,
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	h.listener = ln
	h.server = &http.Server{Handler: mux}

	h.running.Store(true)

	go func() {
		h.log.WithField("addr", ln.Addr().String()).
			Info("Metrics server started")

		if err := h.server.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			h.log.WithError(err).Error("Metrics server error")
		}

		h.running.Store(false)
	}()

	return nil
}

// Addr returns the listener address once started, the configured one
// before that.
func (h *HealthMetrics) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}

	return h.addr
}

// Stop shuts the server down.
func (h *HealthMetrics) Stop() error {
	if h.server == nil {
		return nil
	}

	return h.server.Close()
}
