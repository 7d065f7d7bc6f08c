package times

import (
	"strconv"
	"strings"
	"time"
)

// Tags holds one printable label per bucket, Len() == steps.Len()+1.
//
// Labels use whole milliseconds:
//
//	bucket 0:        "<s0> --"
//	bucket i:        "<si> -- <si-1>"
//	bucket Len()-1:  "-- <sn-1>"
type Tags struct {
	items []string
}

// NewTags derives bucket labels from steps.
func NewTags(steps *Steps) *Tags {
	size := steps.Len() + 1
	items := make([]string, size)

	for i := 0; i < size; i++ {
		var sb strings.Builder

		if i < size-1 {
			sb.WriteString(millis(steps.At(i)))
			sb.WriteByte(' ')
		}

		sb.WriteString("--")

		if i > 0 {
			sb.WriteByte(' ')
			sb.WriteString(millis(steps.At(i - 1)))
		}

		items[i] = sb.String()
	}

	return &Tags{items: items}
}

func millis(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Millisecond), 10)
}

// Len returns the number of labels.
func (t *Tags) Len() int {
	return len(t.items)
}

// Label returns the label of bucket i.
func (t *Tags) Label(i int) string {
	return t.items[i]
}

// Labels returns a copy of all labels.
func (t *Tags) Labels() []string {
	out := make([]string, len(t.items))
	copy(out, t.items)

	return out
}
