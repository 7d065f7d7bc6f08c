package config

import (
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// Codec parses, prints and describes values of one type.
//
// Parse is called with the cursor on the first significant byte of the
// value. When a key repeats inside a switch, Parse runs again on the slot
// that already holds the previous value; each codec documents whether it
// overwrites or merges in that case.
type Codec[T any] interface {
	Parse(in *Input, v *T) error
	Print(out *Output, indent int, v T)
	Syntax() string
}

// scalar is a single-token codec. Repeated keys overwrite.
type scalar[T any] struct {
	syntax string
	from   func(string) (T, error)
	to     func(T) string
}

func (s scalar[T]) Parse(in *Input, v *T) error {
	pos := in.Pos()

	tok := in.Token()
	if tok == "" {
		return in.Errorf("%s is expected", s.syntax)
	}

	val, err := s.from(tok)
	if err != nil {
		return &ParseError{Pos: pos, Msg: "bad " + s.syntax + " " + strconv.Quote(tok)}
	}

	*v = val

	return nil
}

func (s scalar[T]) Print(out *Output, _ int, v T) {
	out.WriteString(s.to(v))
}

func (s scalar[T]) Syntax() string {
	return s.syntax
}

var (
	// Int is a signed integer, decimal or 0x/0o/0b prefixed. Leading
	// zeros are decimal: 010 is ten.
	Int Codec[int64] = scalar[int64]{
		syntax: "<int>",
		from:   func(s string) (int64, error) { return cast.ToInt64E(trimLeadingZeros(s)) },
		to:     func(v int64) string { return strconv.FormatInt(v, 10) },
	}

	// Uint is an unsigned integer, with the same forms as Int.
	Uint Codec[uint64] = scalar[uint64]{
		syntax: "<uint>",
		from:   parseUint,
		to:     func(v uint64) string { return strconv.FormatUint(v, 10) },
	}

	// Duration is a Go duration such as 250ms or 1m30s. A bare number is
	// taken as nanoseconds.
	Duration Codec[time.Duration] = scalar[time.Duration]{
		syntax: "<interval>",
		from:   func(s string) (time.Duration, error) { return cast.ToDurationE(s) },
		to:     time.Duration.String,
	}

	// Bool is true or false.
	Bool Codec[bool] = scalar[bool]{
		syntax: "<bool>",
		from:   func(s string) (bool, error) { return cast.ToBoolE(s) },
		to:     strconv.FormatBool,
	}

	// String is a bare token or a double-quoted Go string literal.
	String Codec[string] = stringCodec{}
)

func parseUint(s string) (uint64, error) {
	if s != "" && s[0] == '-' {
		return 0, strconv.ErrSyntax
	}

	return cast.ToUint64E(trimLeadingZeros(s))
}

// trimLeadingZeros drops zeros ahead of a decimal digit so that cast's
// base prefix detection does not read 010 as octal.
func trimLeadingZeros(s string) string {
	sign, digits := "", s
	if digits != "" && (digits[0] == '-' || digits[0] == '+') {
		sign, digits = digits[:1], digits[1:]
	}

	i := 0
	for i+1 < len(digits) && digits[i] == '0' && digits[i+1] >= '0' && digits[i+1] <= '9' {
		i++
	}

	return sign + digits[i:]
}

// stringCodec overwrites on repeated keys.
type stringCodec struct{}

func (stringCodec) Parse(in *Input, v *string) error {
	if in.Peek() != '"' {
		tok := in.Token()
		if tok == "" {
			return in.Errorf("<string> is expected")
		}

		*v = tok

		return nil
	}

	pos := in.Pos()

	raw, err := in.Quoted()
	if err != nil {
		return err
	}

	s, err := strconv.Unquote(raw)
	if err != nil {
		return &ParseError{Pos: pos, Msg: "bad string " + raw}
	}

	*v = s

	return nil
}

func (stringCodec) Print(out *Output, _ int, v string) {
	if isToken(v) {
		out.WriteString(v)

		return
	}

	out.WriteString(strconv.Quote(v))
}

func (stringCodec) Syntax() string {
	return "<string>"
}

func isToken(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !isTokenByte(s[i]) {
			return false
		}
	}

	return true
}

// ParseText parses text as exactly one value of c.
func ParseText[T any](c Codec[T], text string) (T, error) {
	var v T

	in := NewInput(text)
	if in.SkipSpace() == 0 {
		return v, in.Errorf("value is expected")
	}

	if err := c.Parse(in, &v); err != nil {
		return v, err
	}

	if in.SkipSpace() != 0 {
		return v, in.Errorf("unexpected %q", in.Peek())
	}

	return v, nil
}
