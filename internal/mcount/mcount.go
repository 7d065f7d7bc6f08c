// Package mcount implements labelled multi-bucket hit counters.
package mcount

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"text/tabwriter"
)

var (
	// ErrAlreadyInitialized is returned by a second Init call.
	ErrAlreadyInitialized = errors.New("counter already initialized")
	// ErrNoLabels is returned by Init without labels.
	ErrNoLabels = errors.New("counter needs at least one label")
)

// MultiCounter keeps one atomic counter per labelled bucket.
// Inc, Snapshot, Reset and Print are safe for concurrent use once Init
// has returned.
type MultiCounter struct {
	labels []string
	counts []atomic.Uint64
	ready  atomic.Bool
}

// New returns an uninitialized MultiCounter.
func New() *MultiCounter {
	return &MultiCounter{}
}

// Init allocates one counter per label.
func (m *MultiCounter) Init(labels []string) error {
	if len(labels) == 0 {
		return ErrNoLabels
	}

	if m.ready.Load() {
		return ErrAlreadyInitialized
	}

	m.labels = append([]string(nil), labels...)
	m.counts = make([]atomic.Uint64, len(labels))
	m.ready.Store(true)

	return nil
}

// Len returns the number of buckets, 0 before Init.
func (m *MultiCounter) Len() int {
	if !m.ready.Load() {
		return 0
	}

	return len(m.counts)
}

// Inc adds one hit to bucket idx. Out of range indices are ignored.
func (m *MultiCounter) Inc(idx int) {
	m.Add(idx, 1)
}

// Add adds n hits to bucket idx. Out of range indices are ignored.
func (m *MultiCounter) Add(idx int, n uint64) {
	if !m.ready.Load() || idx < 0 || idx >= len(m.counts) {
		return
	}

	m.counts[idx].Add(n)
}

// Bucket is a point-in-time count of one bucket.
type Bucket struct {
	Index int
	Label string
	Count uint64
}

// Snapshot returns the current counts.
func (m *MultiCounter) Snapshot() []Bucket {
	return m.collect(func(c *atomic.Uint64) uint64 { return c.Load() })
}

// Reset returns the current counts and sets them to zero.
func (m *MultiCounter) Reset() []Bucket {
	return m.collect(func(c *atomic.Uint64) uint64 { return c.Swap(0) })
}

func (m *MultiCounter) collect(read func(*atomic.Uint64) uint64) []Bucket {
	if !m.ready.Load() {
		return nil
	}

	out := make([]Bucket, len(m.counts))
	for i := range m.counts {
		out[i] = Bucket{
			Index: i,
			Label: m.labels[i],
			Count: read(&m.counts[i]),
		}
	}

	return out
}

// Print writes one `label  count` line per bucket, columns aligned.
func (m *MultiCounter) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)

	for _, b := range m.Snapshot() {
		if _, err := fmt.Fprintf(tw, "%s\t%d\t\n", b.Label, b.Count); err != nil {
			return err
		}
	}

	return tw.Flush()
}
