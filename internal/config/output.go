package config

import (
	"bufio"
	"io"
	"strings"
)

// Output is a buffered printer for configuration text. The first write
// error is kept and returned by Flush; later writes are no-ops.
type Output struct {
	w   *bufio.Writer
	err error
}

// NewOutput wraps w.
func NewOutput(w io.Writer) *Output {
	return &Output{w: bufio.NewWriter(w)}
}

// WriteString writes s.
func (o *Output) WriteString(s string) *Output {
	if o.err == nil {
		_, o.err = o.w.WriteString(s)
	}

	return o
}

// Indent writes n tab characters.
func (o *Output) Indent(n int) *Output {
	if n > 0 {
		o.WriteString(strings.Repeat("\t", n))
	}

	return o
}

// Lf ends the current line.
func (o *Output) Lf() *Output {
	return o.WriteString("\n")
}

// Flush writes buffered data and returns the first error seen.
func (o *Output) Flush() error {
	if o.err != nil {
		return o.err
	}

	o.err = o.w.Flush()

	return o.err
}

// Sprint renders v with c into a string.
func Sprint[T any](c Codec[T], v T) string {
	var sb strings.Builder

	out := NewOutput(&sb)
	c.Print(out, 0, v)
	_ = out.Flush()

	return sb.String()
}
