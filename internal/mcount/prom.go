package mcount

import (
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter is the contract a Prom wrapper delegates to.
type Counter interface {
	Init(labels []string) error
	Inc(idx int)
	Print(w io.Writer) error
}

// Prom mirrors every hit into a Prometheus counter vector labelled by
// histogram name, bucket index and bucket label, then forwards it to next.
// Labels are whole milliseconds and may repeat, so the index keys the series.
type Prom struct {
	vec       *prometheus.CounterVec
	histogram string
	next      Counter
	children  []prometheus.Counter
}

// NewProm wraps next. vec must have exactly the labels
// "histogram", "bucket" and "label".
func NewProm(vec *prometheus.CounterVec, histogram string, next Counter) *Prom {
	return &Prom{
		vec:       vec,
		histogram: histogram,
		next:      next,
	}
}

// Init resolves one child counter per bucket, then initializes next.
func (p *Prom) Init(labels []string) error {
	children := make([]prometheus.Counter, len(labels))

	for i, l := range labels {
		c, err := p.vec.GetMetricWithLabelValues(p.histogram, strconv.Itoa(i), l)
		if err != nil {
			return err
		}

		children[i] = c
	}

	if err := p.next.Init(labels); err != nil {
		return err
	}

	p.children = children

	return nil
}

// Inc counts one hit in both places.
func (p *Prom) Inc(idx int) {
	if idx >= 0 && idx < len(p.children) {
		p.children[idx].Inc()
	}

	p.next.Inc(idx)
}

// Print delegates to next.
func (p *Prom) Print(w io.Writer) error {
	return p.next.Print(w)
}
