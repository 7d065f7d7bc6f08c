// Package config parses and prints the block configuration grammar used to
// describe benchmark settings: whitespace separated `<key> : <value>`
// entries, where values may themselves be nested `{ ... }` blocks.
//
// A `#` outside a quoted string starts a comment that runs to the end of
// the line, including directly after a token: `k : a#b` sets k to a.
// Quote the value to keep a `#` in it.
package config

import (
	"fmt"
)

// Position is a location in configuration text. Line and Column are
// 1-based, Offset is a 0-based byte offset.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns "line L, column C".
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ParseError reports malformed configuration text.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Input is a forward cursor over configuration text. `#` is not a token
// byte, so Token stops at it and the next SkipSpace drops the comment.
// A sub-input created by Sub shares the underlying text and reports
// absolute positions.
type Input struct {
	data []byte
	end  int
	pos  Position
}

// NewInput returns an Input positioned at the start of text.
func NewInput(text string) *Input {
	return &Input{
		data: []byte(text),
		end:  len(text),
		pos:  Position{Line: 1, Column: 1},
	}
}

// Pos returns the current position.
func (in *Input) Pos() Position {
	return in.pos
}

// EOF reports whether the cursor reached the end of the input.
func (in *Input) EOF() bool {
	return in.pos.Offset >= in.end
}

// Peek returns the current byte, or 0 at the end of the input.
func (in *Input) Peek() byte {
	if in.EOF() {
		return 0
	}

	return in.data[in.pos.Offset]
}

// Advance moves the cursor one byte forward.
func (in *Input) Advance() {
	if in.EOF() {
		return
	}

	if in.data[in.pos.Offset] == '\n' {
		in.pos.Line++
		in.pos.Column = 1
	} else {
		in.pos.Column++
	}

	in.pos.Offset++
}

// SkipSpace skips whitespace and `#` line comments and returns the next
// significant byte, or 0 at the end of the input.
func (in *Input) SkipSpace() byte {
	for !in.EOF() {
		switch c := in.data[in.pos.Offset]; {
		case c == '#':
			for !in.EOF() && in.Peek() != '\n' {
				in.Advance()
			}
		case isSpace(c):
			in.Advance()
		default:
			return c
		}
	}

	return 0
}

// Token consumes the longest run of token bytes and returns it.
// An empty string means no token starts at the cursor.
func (in *Input) Token() string {
	start := in.pos.Offset

	for !in.EOF() && isTokenByte(in.Peek()) {
		in.Advance()
	}

	return string(in.data[start:in.pos.Offset])
}

// Errorf returns a ParseError at the current position.
func (in *Input) Errorf(format string, args ...any) *ParseError {
	return &ParseError{Pos: in.pos, Msg: fmt.Sprintf(format, args...)}
}

// Block expects the cursor on open, finds the matching close byte and
// returns a sub-input covering the content in between. The receiver is
// left just past the closing byte. Quoted strings are skipped so that
// delimiters inside them do not count.
func (in *Input) Block(open, close byte) (*Input, error) {
	if in.Peek() != open {
		return nil, in.Errorf("'%c' is expected", open)
	}

	in.Advance()

	sub := &Input{data: in.data, pos: in.pos}
	depth := 1

	for !in.EOF() {
		switch c := in.Peek(); c {
		case '"':
			if err := in.skipQuoted(); err != nil {
				return nil, err
			}

			continue
		case '#':
			in.SkipSpace()

			continue
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				sub.end = in.pos.Offset
				in.Advance()

				return sub, nil
			}
		}

		in.Advance()
	}

	return nil, in.Errorf("'%c' is expected", close)
}

// Quoted consumes a double-quoted string and returns its raw text
// including the quotes.
func (in *Input) Quoted() (string, error) {
	start := in.pos.Offset

	if err := in.skipQuoted(); err != nil {
		return "", err
	}

	return string(in.data[start:in.pos.Offset]), nil
}

func (in *Input) skipQuoted() error {
	begin := in.pos

	in.Advance()

	for !in.EOF() {
		switch in.Peek() {
		case '\\':
			in.Advance()
		case '"':
			in.Advance()

			return nil
		case '\n':
			return &ParseError{Pos: begin, Msg: "unterminated string"}
		}

		in.Advance()
	}

	return &ParseError{Pos: begin, Msg: "unterminated string"}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isTokenByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '+' || c == '.' || c == '/':
		return true
	case c >= 0x80:
		// UTF-8 continuation and lead bytes, e.g. "µs".
		return true
	}

	return false
}
