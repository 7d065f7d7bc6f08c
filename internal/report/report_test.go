package report

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/loadtimes/internal/export"
	"github.com/ethpandaops/loadtimes/internal/mcount"
	"github.com/ethpandaops/loadtimes/internal/times"
)

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newHistogram(t *testing.T) (*times.Times, *mcount.MultiCounter) {
	t.Helper()

	counter := mcount.New()
	h, err := times.New(quietLog(), "answ_times", times.List{
		time.Second, 500 * time.Millisecond, 100 * time.Millisecond,
	}, counter)
	require.NoError(t, err)
	require.NoError(t, h.Init())

	return h, counter
}

type recordingExporter struct {
	name string
	err  error

	mu      sync.Mutex
	started bool
	stopped bool
	reports []Report
}

func (e *recordingExporter) Name() string { return e.name }

func (e *recordingExporter) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = true

	return nil
}

func (e *recordingExporter) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true

	return nil
}

func (e *recordingExporter) Export(_ context.Context, rep Report) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reports = append(e.reports, rep)

	return e.err
}

func (e *recordingExporter) Reports() []Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]Report(nil), e.reports...)
}

func TestBuilder_BoundsAndDeltas(t *testing.T) {
	h, counter := newHistogram(t)
	b := NewBuilder(h.Name(), "bench-1", h.Steps(), false)

	h.Inc(1200 * time.Millisecond)
	h.Inc(700 * time.Millisecond)
	h.Inc(700 * time.Millisecond)
	h.Inc(50 * time.Millisecond)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rep := b.Build(counter.Snapshot(), Window{Start: start, Interval: 10 * time.Second}, start.Add(10*time.Second))

	assert.Equal(t, "answ_times", rep.Histogram)
	assert.Equal(t, "bench-1", rep.ClientName)
	assert.Equal(t, uint32(10000), rep.Window.IntervalMs())
	assert.Equal(t, uint64(4), rep.Hits())

	require.Len(t, rep.Rows, 4)
	assert.Equal(t, Row{
		Bucket: 0, Label: "1000 --", LowerNs: int64(time.Second), UpperNs: 0, Count: 1, Total: 1,
	}, rep.Rows[0])
	assert.Equal(t, Row{
		Bucket: 1, Label: "500 -- 1000",
		LowerNs: int64(500 * time.Millisecond), UpperNs: int64(time.Second), Count: 2, Total: 2,
	}, rep.Rows[1])
	assert.Equal(t, uint64(0), rep.Rows[2].Count)
	assert.Equal(t, Row{
		Bucket: 3, Label: "-- 100", LowerNs: 0, UpperNs: int64(100 * time.Millisecond), Count: 1, Total: 1,
	}, rep.Rows[3])

	// Second window only reports new hits, totals keep growing.
	h.Inc(700 * time.Millisecond)

	rep = b.Build(counter.Snapshot(), Window{Start: start.Add(10 * time.Second), Interval: 10 * time.Second}, start)
	assert.Equal(t, uint64(1), rep.Hits())
	assert.Equal(t, uint64(1), rep.Rows[1].Count)
	assert.Equal(t, uint64(3), rep.Rows[1].Total)
	assert.Equal(t, uint64(0), rep.Rows[0].Count)
	assert.Equal(t, uint64(1), rep.Rows[0].Total)
}

func TestBuilder_SkipEmpty(t *testing.T) {
	h, counter := newHistogram(t)
	b := NewBuilder(h.Name(), "", h.Steps(), true)

	h.Inc(200 * time.Millisecond)

	rep := b.Build(counter.Snapshot(), Window{}, time.Now())
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, uint16(2), rep.Rows[0].Bucket)
	assert.Equal(t, "100 -- 500", rep.Rows[0].Label)

	rep = b.Build(counter.Snapshot(), Window{}, time.Now())
	assert.Empty(t, rep.Rows)
}

func TestBuilder_CounterRestart(t *testing.T) {
	h, _ := newHistogram(t)
	b := NewBuilder(h.Name(), "", h.Steps(), false)

	b.Build([]mcount.Bucket{{Index: 0, Count: 10}}, Window{}, time.Now())
	rep := b.Build([]mcount.Bucket{{Index: 0, Count: 4}, {Index: 9, Count: 1}}, Window{}, time.Now())

	require.Len(t, rep.Rows, 1)
	assert.Equal(t, uint64(4), rep.Rows[0].Count)
}

func TestReporter_FlushAndStop(t *testing.T) {
	h, counter := newHistogram(t)
	health := export.NewHealthMetrics(quietLog(), export.HealthConfig{})

	ok := &recordingExporter{name: "ok"}
	failing := &recordingExporter{name: "failing", err: errors.New("boom")}

	r := NewReporter(quietLog(), Config{Interval: 0, ClientName: "c"}, h, counter, health, ok, failing)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, ok.started)
	assert.True(t, failing.started)

	h.Inc(700 * time.Millisecond)
	clock = clock.Add(5 * time.Second)

	err := r.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing: boom")

	reports := ok.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, 5*time.Second, reports[0].Window.Interval)
	assert.Equal(t, uint64(1), reports[0].Hits())
	assert.Equal(t, "c", reports[0].ClientName)

	h.Inc(50 * time.Millisecond)
	clock = clock.Add(2 * time.Second)

	require.Error(t, r.Stop())
	assert.True(t, ok.stopped)
	assert.True(t, failing.stopped)

	reports = ok.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, 2*time.Second, reports[1].Window.Interval)
	assert.Equal(t, uint64(1), reports[1].Rows[3].Count)

	// The counter keeps run totals for the final stat print.
	snap := counter.Snapshot()
	assert.Equal(t, uint64(1), snap[1].Count)
	assert.Equal(t, uint64(1), snap[3].Count)
}

func TestReporter_Periodic(t *testing.T) {
	h, counter := newHistogram(t)
	rec := &recordingExporter{name: "rec"}

	r := NewReporter(quietLog(), Config{Interval: 10 * time.Millisecond}, h, counter, nil, rec)
	require.NoError(t, r.Start(context.Background()))

	h.Inc(time.Minute)

	require.Eventually(t, func() bool {
		return len(rec.Reports()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop())

	var hits uint64
	for _, rep := range rec.Reports() {
		hits += rep.Hits()
	}

	assert.Equal(t, uint64(1), hits)
}

type failingStart struct{ recordingExporter }

func (f *failingStart) Start(_ context.Context) error { return errors.New("no route") }

func TestReporter_StartFailureStopsStarted(t *testing.T) {
	h, counter := newHistogram(t)
	first := &recordingExporter{name: "first"}
	second := &failingStart{recordingExporter{name: "second"}}

	r := NewReporter(quietLog(), Config{Interval: time.Second}, h, counter, nil, first, second)

	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting second exporter")
	assert.True(t, first.stopped)
}

func TestLogExporter(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	e := NewLogExporter(log)
	require.NoError(t, e.Export(context.Background(), Report{
		Histogram: "answ_times",
		Rows: []Row{
			{Bucket: 0, Label: "1000 --", Count: 0},
			{Bucket: 1, Label: "500 -- 1000", Count: 3, Total: 7},
		},
	}))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Window report", entries[0].Message)
	assert.Equal(t, uint64(3), entries[0].Data["hits"])
	assert.Equal(t, "500 -- 1000", entries[1].Data["bucket"])
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.LogEnabled())

	cfg.Interval = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ClickHouse.Enabled = true
	cfg.ClickHouse.Endpoint = ""
	assert.ErrorContains(t, cfg.Validate(), "endpoint is required")

	cfg = DefaultConfig()
	cfg.HTTP.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "report.http")

	cfg = DefaultConfig()
	cfg.ClickHouse.Enabled = true
	cfg.ClickHouse.Migrate = true
	cfg.ClickHouse.Table = "bench_buckets"
	assert.ErrorContains(t, cfg.Validate(), `table must be "latency_buckets" when migrate is enabled`)

	// Without migrations the table is managed externally.
	cfg.ClickHouse.Migrate = false
	assert.NoError(t, cfg.Validate())
}

func TestBuildExporters(t *testing.T) {
	off := false
	cfg := DefaultConfig()
	cfg.Log = &off
	cfg.ClickHouse.Enabled = true
	cfg.HTTP.Enabled = true
	cfg.HTTP.Address = "http://localhost:8686"

	exporters, err := BuildExporters(quietLog(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, exporters, 2)
	assert.Equal(t, "clickhouse", exporters[0].Name())
	assert.Equal(t, "http", exporters[1].Name())
}
