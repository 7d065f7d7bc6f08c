// Package times classifies measured intervals into latency buckets.
//
// Bucket boundaries ("steps") are a strictly descending list of
// durations. Bucket 0 holds intervals at or above the largest step, bucket
// i holds intervals in [steps[i], steps[i-1]), and the last bucket,
// len(steps), holds everything below the smallest step.
package times

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxSteps bounds the number of boundaries so that every bucket index
// fits in a uint16.
const MaxSteps = math.MaxUint16

// ErrContractViolation marks a programming or configuration defect:
// steps that are not strictly descending, or a classification that did
// not resolve to a bucket.
var ErrContractViolation = errors.New("contract violation")

// Generator supplies bucket boundaries. Fill receives a slice of length
// Size() and must write a strictly descending sequence of positive
// durations into it.
type Generator interface {
	Size() int
	Fill(steps []time.Duration)
}

// Steps is an immutable, strictly descending list of bucket boundaries.
type Steps struct {
	items []time.Duration
}

// NewSteps builds the boundaries produced by gen and checks that they are
// non-empty, at most MaxSteps long, positive and strictly descending.
func NewSteps(gen Generator) (*Steps, error) {
	size := gen.Size()
	if size <= 0 || size > MaxSteps {
		return nil, fmt.Errorf("%w: generator produced %d steps", ErrContractViolation, size)
	}

	items := make([]time.Duration, size)
	gen.Fill(items)

	for i, d := range items {
		if d <= 0 {
			return nil, fmt.Errorf("%w: step %d is %s, must be positive", ErrContractViolation, i, d)
		}

		if i > 0 && d >= items[i-1] {
			return nil, fmt.Errorf(
				"%w: step %d (%s) is not below step %d (%s)",
				ErrContractViolation, i, d, i-1, items[i-1],
			)
		}
	}

	return &Steps{items: items}, nil
}

// Len returns the number of boundaries. There are Len()+1 buckets.
func (s *Steps) Len() int {
	return len(s.items)
}

// At returns the i-th boundary.
func (s *Steps) At(i int) time.Duration {
	return s.items[i]
}

// Values returns a copy of the boundaries.
func (s *Steps) Values() []time.Duration {
	out := make([]time.Duration, len(s.items))
	copy(out, s.items)

	return out
}

// Index returns the bucket of interval, in [0, Len()].
// It panics with an error wrapping ErrContractViolation if the search
// does not resolve, which cannot happen for steps built by NewSteps.
func (s *Steps) Index(interval time.Duration) int {
	size := len(s.items)

	if interval >= s.items[0] {
		return 0
	}

	if interval < s.items[size-1] {
		return size
	}

	left, right := 1, size-1

search:
	for left <= right {
		i := (left + right) / 2

		switch {
		case interval >= s.items[i-1]:
			if right == i {
				// No progress possible, the steps are not descending.
				break search
			}

			right = i
		case interval < s.items[i]:
			left = i + 1
		default:
			return i
		}
	}

	panic(fmt.Errorf("%w: interval %s not classified", ErrContractViolation, interval))
}
