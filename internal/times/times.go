package times

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Counter accumulates per-bucket hits. Inc must be safe for concurrent
// use and may run while Print is reading.
type Counter interface {
	// Init sizes the counter, one slot per label.
	Init(labels []string) error
	// Inc adds one hit to bucket idx, idx in [0, len(labels)).
	Inc(idx int)
	// Print writes one line per bucket.
	Print(w io.Writer) error
}

// State is the lifecycle stage of a Times histogram.
type State int32

const (
	StateNew State = iota
	StateRunning
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunning:
		return "running"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrAlreadyInitialized is returned by a second Init call.
	ErrAlreadyInitialized = errors.New("histogram already initialized")
	// ErrNotInitialized is returned by StatPrint before Init.
	ErrNotInitialized = errors.New("histogram not initialized")
)

// Times is a latency histogram over fixed steps.
type Times struct {
	log     logrus.FieldLogger
	name    string
	steps   *Steps
	tags    *Tags
	counter Counter

	state   atomic.Int32
	dropped atomic.Uint64
}

// New builds the steps from gen and their labels. The counter is not
// touched until Init.
func New(
	log logrus.FieldLogger,
	name string,
	gen Generator,
	counter Counter,
) (*Times, error) {
	steps, err := NewSteps(gen)
	if err != nil {
		return nil, fmt.Errorf("building steps for %s: %w", name, err)
	}

	return &Times{
		log:     log.WithField("histogram", name),
		name:    name,
		steps:   steps,
		tags:    NewTags(steps),
		counter: counter,
	}, nil
}

// Name returns the histogram name.
func (t *Times) Name() string { return t.name }

// Steps returns the bucket boundaries.
func (t *Times) Steps() *Steps { return t.steps }

// Tags returns the bucket labels.
func (t *Times) Tags() *Tags { return t.tags }

// State returns the current lifecycle stage.
func (t *Times) State() State { return State(t.state.Load()) }

// Init hands the bucket labels to the counter and starts accepting hits.
func (t *Times) Init() error {
	if t.State() != StateNew {
		return ErrAlreadyInitialized
	}

	if err := t.counter.Init(t.tags.Labels()); err != nil {
		return fmt.Errorf("initializing counter for %s: %w", t.name, err)
	}

	if !t.state.CompareAndSwap(int32(StateNew), int32(StateRunning)) {
		return ErrAlreadyInitialized
	}

	t.log.WithField("buckets", t.tags.Len()).Debug("Histogram initialized")

	return nil
}

// Index returns the bucket interval falls into.
func (t *Times) Index(interval time.Duration) int {
	return t.steps.Index(interval)
}

// Inc records one interval. Intervals recorded outside the running state
// are dropped and counted.
func (t *Times) Inc(interval time.Duration) {
	if State(t.state.Load()) != StateRunning {
		t.dropped.Add(1)

		return
	}

	t.counter.Inc(t.steps.Index(interval))
}

// Dropped returns how many intervals arrived outside the running state.
func (t *Times) Dropped() uint64 {
	return t.dropped.Load()
}

// StatPrint writes the accumulated counts through the counter.
func (t *Times) StatPrint(w io.Writer) error {
	if t.State() == StateNew {
		return ErrNotInitialized
	}

	return t.counter.Print(w)
}

// Fini stops accepting hits. It is safe to call more than once.
func (t *Times) Fini() {
	if State(t.state.Swap(int32(StateFinalized))) == StateFinalized {
		return
	}

	t.log.WithField("dropped", t.dropped.Load()).Debug("Histogram finalized")
}
