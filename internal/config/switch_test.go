package config

import (
	"cmp"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDurations() *Switch[string, time.Duration] {
	return NewOrderedSwitch(String, Duration)
}

func keysOf[K, V any](s *Switch[K, V]) []K {
	keys := make([]K, 0, s.Len())
	for k := range s.All() {
		keys = append(keys, k)
	}

	return keys
}

func printed[K, V any](s *Switch[K, V], indent int) string {
	var sb strings.Builder

	out := NewOutput(&sb)
	s.Print(out, indent)

	if err := out.Flush(); err != nil {
		panic(err)
	}

	return sb.String()
}

func TestSwitch_FindOrInsertKeepsOrder(t *testing.T) {
	s := NewOrderedSwitch(Int, Int)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		k := r.Int63n(100)
		*s.FindOrInsert(k) += 1
	}

	keys := keysOf(s)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i], "keys must be strictly ascending")
	}

	var total int64
	for _, v := range s.All() {
		total += v
	}

	assert.Equal(t, int64(500), total)
}

func TestSwitch_FindOrInsertSameSlot(t *testing.T) {
	s := newDurations()

	a := s.FindOrInsert("fast")
	*a = time.Millisecond

	// Inserting around the key must not move its slot.
	s.FindOrInsert("aaa")
	s.FindOrInsert("zzz")

	b := s.FindOrInsert("fast")
	assert.Same(t, a, b)
	assert.Equal(t, time.Millisecond, *b)
	assert.Equal(t, 3, s.Len())
}

func TestSwitch_CustomComparator(t *testing.T) {
	desc := func(a, b int64) int { return cmp.Compare(b, a) }
	s := NewSwitch(Int, String, desc)

	for _, k := range []int64{3, 1, 2, 3} {
		*s.FindOrInsert(k) = "x"
	}

	assert.Equal(t, []int64{3, 2, 1}, keysOf(s))
}

func TestSwitch_LookupRemove(t *testing.T) {
	s := newDurations()
	*s.FindOrInsert("a") = time.Second

	v, ok := s.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, time.Second, v)

	_, ok = s.Lookup("b")
	assert.False(t, ok)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 0, s.Len())
}

func TestSwitch_Parse(t *testing.T) {
	s := newDurations()

	err := s.Parse(NewInput(`
		# thresholds
		slow : 1s
		medium: 500ms fast :100ms
	`))
	require.NoError(t, err)

	assert.Equal(t, []string{"fast", "medium", "slow"}, keysOf(s))

	v, _ := s.Lookup("medium")
	assert.Equal(t, 500*time.Millisecond, v)
}

func TestSwitch_ParseClearsPreviousContent(t *testing.T) {
	s := newDurations()
	*s.FindOrInsert("old") = time.Second

	require.NoError(t, s.Parse(NewInput("new : 2s")))
	assert.Equal(t, []string{"new"}, keysOf(s))
}

func TestSwitch_ParseRepeatedScalarOverwrites(t *testing.T) {
	s := newDurations()

	require.NoError(t, s.Parse(NewInput("a : 1s b : 2s a : 3s")))
	assert.Equal(t, 2, s.Len())

	v, _ := s.Lookup("a")
	assert.Equal(t, 3*time.Second, v)
}

func TestSwitch_ParseCommentAfterToken(t *testing.T) {
	s := NewOrderedSwitch(String, String)

	require.NoError(t, s.Parse(NewInput("k : a#b\nq : \"c#d\"")))

	v, _ := s.Lookup("k")
	assert.Equal(t, "a", v)

	v, _ = s.Lookup("q")
	assert.Equal(t, "c#d", v)
}

func TestSwitch_ParseEmpty(t *testing.T) {
	s := newDurations()

	require.NoError(t, s.Parse(NewInput("  \n\t # nothing here\n")))
	assert.Equal(t, 0, s.Len())
}

func TestSwitch_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
		line int
		col  int
	}{
		{name: "missing separator", text: "a 1s", msg: "':' is expected", line: 1, col: 3},
		{name: "missing value", text: "a :  ", msg: "value is expected", line: 1, col: 6},
		{name: "bad value", text: "a : 1x", msg: `bad <interval> "1x"`, line: 1, col: 5},
		{name: "bad key", text: "\n  : 1s", msg: "<string> is expected", line: 2, col: 3},
		{name: "second entry", text: "a : 1s\nb = 2s", msg: "':' is expected", line: 2, col: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newDurations().Parse(NewInput(tt.text))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.msg, pe.Msg)
			assert.Equal(t, tt.line, pe.Pos.Line)
			assert.Equal(t, tt.col, pe.Pos.Column)
		})
	}
}

func TestSwitch_Print(t *testing.T) {
	s := newDurations()
	require.NoError(t, s.Parse(NewInput("slow : 1s fast : 100ms")))

	assert.Equal(t, "\tfast : 100ms\n\tslow : 1s\n", printed(s, 1))
}

func TestSwitch_PrintParseFixedPoint(t *testing.T) {
	text := "a : 1s\nb : 250ms\nc : 1m30s\n"

	s := newDurations()
	require.NoError(t, s.Parse(NewInput(text)))
	assert.Equal(t, text, printed(s, 0))

	again := newDurations()
	require.NoError(t, again.Parse(NewInput(printed(s, 0))))
	assert.Equal(t, text, printed(again, 0))
}

func TestSwitch_QuotedStrings(t *testing.T) {
	s := NewOrderedSwitch(String, String)

	require.NoError(t, s.Parse(NewInput(`"two words" : "a } b" plain : token`)))

	v, ok := s.Lookup("two words")
	require.True(t, ok)
	assert.Equal(t, "a } b", v)

	assert.Equal(t, "plain : token\n\"two words\" : \"a } b\"\n", printed(s, 0))
}

func TestSwitch_Syntax(t *testing.T) {
	assert.Equal(t, "{ [ <string> : <interval> ]* }", newDurations().Syntax())
	assert.Equal(t, "{ [ <int> : <bool> ]* }", NewOrderedSwitch(Int, Bool).Syntax())
}

func TestBlock_NestedParseAndMerge(t *testing.T) {
	inner := Block(String, Int, cmp.Compare[string])
	s := NewOrderedSwitch(String, inner)

	err := s.Parse(NewInput(`
		io : { reads : 1 writes : 2 }
		net : { tx : 5 }
		io : { writes : 3 opens : 4 }
	`))
	require.NoError(t, err)

	io, ok := s.Lookup("io")
	require.True(t, ok)
	assert.Equal(t, []string{"opens", "reads", "writes"}, keysOf(io))

	w, _ := io.Lookup("writes")
	assert.Equal(t, int64(3), w)

	assert.Equal(t,
		"io : {\n\topens : 4\n\treads : 1\n\twrites : 3\n}\nnet : {\n\ttx : 5\n}\n",
		printed(s, 0),
	)
	assert.Equal(t, "{ [ <string> : { [ <string> : <int> ]* } ]* }", s.Syntax())
}

func TestBlock_Unterminated(t *testing.T) {
	s := NewOrderedSwitch(String, Block(String, Int, cmp.Compare[string]))

	err := s.Parse(NewInput("io : { reads : 1"))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "'}' is expected", pe.Msg)
}

func TestBlock_ErrorPositionInsideBlock(t *testing.T) {
	s := NewOrderedSwitch(String, Block(String, Int, cmp.Compare[string]))

	err := s.Parse(NewInput("io : {\n  reads 1\n}"))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "':' is expected", pe.Msg)
	assert.Equal(t, 2, pe.Pos.Line)
	assert.Equal(t, 9, pe.Pos.Column)
}
