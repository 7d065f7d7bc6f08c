// Package report turns histogram counter snapshots into per-window bucket
// rows and hands them to exporters.
package report

import (
	"time"

	"github.com/ethpandaops/loadtimes/internal/mcount"
	"github.com/ethpandaops/loadtimes/internal/times"
)

// Snapshotter exposes point-in-time bucket counts.
type Snapshotter interface {
	Snapshot() []mcount.Bucket
}

// Window is the time range a report covers.
type Window struct {
	Start    time.Time
	Interval time.Duration
}

// IntervalMs returns the window length in whole milliseconds.
func (w Window) IntervalMs() uint32 {
	return uint32(w.Interval / time.Millisecond)
}

// Row is the hit count of one bucket within one window.
type Row struct {
	Bucket uint16
	Label  string
	// LowerNs is the inclusive lower bound, 0 for the last bucket.
	LowerNs int64
	// UpperNs is the exclusive upper bound, 0 for the unbounded bucket 0.
	UpperNs int64
	// Count is the number of hits in this window.
	Count uint64
	// Total is the number of hits since the run started.
	Total uint64
}

// Report is one window's worth of rows for a histogram.
type Report struct {
	Histogram   string
	ClientName  string
	UpdatedTime time.Time
	Window      Window
	Rows        []Row
}

// Hits returns the number of hits in the window.
func (r *Report) Hits() uint64 {
	var n uint64
	for _, row := range r.Rows {
		n += row.Count
	}

	return n
}

// Builder computes window deltas between consecutive snapshots.
// Not safe for concurrent use.
type Builder struct {
	histogram  string
	clientName string
	skipEmpty  bool
	lower      []int64
	upper      []int64
	prev       []uint64
}

// NewBuilder derives bucket bounds from steps. With skipEmpty, buckets
// without hits in a window are left out of its report.
func NewBuilder(histogram, clientName string, steps *times.Steps, skipEmpty bool) *Builder {
	n := steps.Len() + 1
	b := &Builder{
		histogram:  histogram,
		clientName: clientName,
		skipEmpty:  skipEmpty,
		lower:      make([]int64, n),
		upper:      make([]int64, n),
		prev:       make([]uint64, n),
	}

	for i := 0; i < n; i++ {
		if i < steps.Len() {
			b.lower[i] = int64(steps.At(i))
		}

		if i > 0 {
			b.upper[i] = int64(steps.At(i - 1))
		}
	}

	return b
}

// Build returns the report for snap and remembers it as the baseline for
// the next call.
func (b *Builder) Build(snap []mcount.Bucket, window Window, now time.Time) Report {
	rep := Report{
		Histogram:   b.histogram,
		ClientName:  b.clientName,
		UpdatedTime: now,
		Window:      window,
		Rows:        make([]Row, 0, len(snap)),
	}

	for _, bucket := range snap {
		i := bucket.Index
		if i < 0 || i >= len(b.prev) {
			continue
		}

		delta := bucket.Count - b.prev[i]
		if bucket.Count < b.prev[i] {
			// The counter went backwards, treat it as restarted.
			delta = bucket.Count
		}

		b.prev[i] = bucket.Count

		if delta == 0 && b.skipEmpty {
			continue
		}

		rep.Rows = append(rep.Rows, Row{
			Bucket:  uint16(i),
			Label:   bucket.Label,
			LowerNs: b.lower[i],
			UpperNs: b.upper[i],
			Count:   delta,
			Total:   bucket.Count,
		})
	}

	return rep
}
