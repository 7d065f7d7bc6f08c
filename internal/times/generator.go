package times

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/ethpandaops/loadtimes/internal/config"
)

// List yields its values unchanged, largest first.
type List []time.Duration

func (l List) Size() int { return len(l) }

func (l List) Fill(steps []time.Duration) { copy(steps, l) }

// Simple spreads Count steps geometrically from Max down to Min, rounded
// to the microsecond.
type Simple struct {
	Max   time.Duration `yaml:"max"`
	Min   time.Duration `yaml:"min"`
	Count int           `yaml:"count"`
}

func (s Simple) Size() int { return s.Count }

func (s Simple) Fill(steps []time.Duration) {
	if len(steps) == 0 {
		return
	}

	steps[0] = s.Max
	if len(steps) == 1 {
		return
	}

	ratio := float64(s.Min) / float64(s.Max)
	last := float64(len(steps) - 1)

	for i := 1; i < len(steps); i++ {
		v := float64(s.Max) * math.Pow(ratio, float64(i)/last)
		steps[i] = time.Duration(v).Round(time.Microsecond)
	}

	steps[len(steps)-1] = s.Min
}

// FromDense returns a generator over the values of a frozen name to
// threshold block, largest first. Duplicate thresholds are left in place
// for NewSteps to reject.
func FromDense(d *config.Dense[string, time.Duration]) Generator {
	values := make(List, d.Len())
	for i := range values {
		values[i] = d.Value(i)
	}

	slices.SortFunc(values, func(a, b time.Duration) int {
		return cmp.Compare(b, a)
	})

	return values
}
