package config

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
)

type entry[K, V any] struct {
	key K
	val V
}

// Switch is an ordered key/value block. Entries are kept sorted by the
// comparator with no two keys comparing equal. Value slots returned by
// FindOrInsert stay valid until the key is removed or the switch is
// cleared.
//
// A Switch is not safe for concurrent mutation.
type Switch[K, V any] struct {
	keys    Codec[K]
	vals    Codec[V]
	cmp     func(a, b K) int
	entries []*entry[K, V]
}

// NewSwitch returns an empty switch ordered by cmp, which must return a
// negative number, zero or a positive number when a is less than, equal
// to or greater than b.
func NewSwitch[K, V any](keys Codec[K], vals Codec[V], cmp func(a, b K) int) *Switch[K, V] {
	return &Switch[K, V]{
		keys: keys,
		vals: vals,
		cmp:  cmp,
	}
}

// NewOrderedSwitch returns an empty switch using the natural order of K.
func NewOrderedSwitch[K cmp.Ordered, V any](keys Codec[K], vals Codec[V]) *Switch[K, V] {
	return NewSwitch(keys, vals, cmp.Compare[K])
}

func (s *Switch[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(s.entries, key, func(e *entry[K, V], k K) int {
		return s.cmp(e.key, k)
	})
}

// FindOrInsert returns the value slot for key, inserting a zero value at
// its ordered position when the key is absent.
func (s *Switch[K, V]) FindOrInsert(key K) *V {
	i, found := s.search(key)
	if found {
		return &s.entries[i].val
	}

	e := &entry[K, V]{key: key}
	s.entries = slices.Insert(s.entries, i, e)

	return &e.val
}

// Lookup returns the value stored under key.
func (s *Switch[K, V]) Lookup(key K) (V, bool) {
	if i, found := s.search(key); found {
		return s.entries[i].val, true
	}

	var zero V

	return zero, false
}

// Remove deletes key and reports whether it was present.
func (s *Switch[K, V]) Remove(key K) bool {
	i, found := s.search(key)
	if !found {
		return false
	}

	s.entries = slices.Delete(s.entries, i, i+1)

	return true
}

// Len returns the number of entries.
func (s *Switch[K, V]) Len() int {
	return len(s.entries)
}

// Clear drops every entry.
func (s *Switch[K, V]) Clear() {
	clear(s.entries)
	s.entries = s.entries[:0]
}

// All iterates entries in ascending key order.
func (s *Switch[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range s.entries {
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}

// Cursor returns a forward cursor positioned before the first entry.
func (s *Switch[K, V]) Cursor() Cursor[K, V] {
	return &switchCursor[K, V]{entries: s.entries, i: -1}
}

type switchCursor[K, V any] struct {
	entries []*entry[K, V]
	i       int
}

func (c *switchCursor[K, V]) Next() bool {
	if c.i < len(c.entries) {
		c.i++
	}

	return c.i < len(c.entries)
}

func (c *switchCursor[K, V]) Key() K   { return c.entries[c.i].key }
func (c *switchCursor[K, V]) Value() V { return c.entries[c.i].val }

// Parse replaces the content of the switch with the entries read from in,
// up to the end of the input.
func (s *Switch[K, V]) Parse(in *Input) error {
	s.Clear()

	return s.parseContent(in)
}

// parseContent adds entries to the switch. A repeated key parses again
// into its existing slot.
func (s *Switch[K, V]) parseContent(in *Input) error {
	for in.SkipSpace() != 0 {
		var key K

		if err := s.keys.Parse(in, &key); err != nil {
			return err
		}

		if in.SkipSpace() != ':' {
			return in.Errorf("':' is expected")
		}

		in.Advance()

		if in.SkipSpace() == 0 {
			return in.Errorf("value is expected")
		}

		if err := s.vals.Parse(in, s.FindOrInsert(key)); err != nil {
			return err
		}
	}

	return nil
}

// Print writes one `<key> : <value>` line per entry, each indented by
// indent tabs.
func (s *Switch[K, V]) Print(out *Output, indent int) {
	for _, e := range s.entries {
		out.Indent(indent)
		s.keys.Print(out, indent, e.key)
		out.WriteString(" : ")
		s.vals.Print(out, indent, e.val)
		out.Lf()
	}
}

// Syntax describes the grammar of the switch content.
func (s *Switch[K, V]) Syntax() string {
	return fmt.Sprintf("{ [ %s : %s ]* }", s.keys.Syntax(), s.vals.Syntax())
}

// blockCodec parses a nested switch delimited by braces. A repeated key
// merges: the new entries are added to the switch already in the slot.
type blockCodec[K, V any] struct {
	keys Codec[K]
	vals Codec[V]
	cmp  func(a, b K) int
}

// Block returns a codec for switch values written as `{ ... }`.
func Block[K, V any](keys Codec[K], vals Codec[V], cmp func(a, b K) int) Codec[*Switch[K, V]] {
	return blockCodec[K, V]{keys: keys, vals: vals, cmp: cmp}
}

func (b blockCodec[K, V]) Parse(in *Input, v **Switch[K, V]) error {
	sub, err := in.Block('{', '}')
	if err != nil {
		return err
	}

	if *v == nil {
		*v = NewSwitch(b.keys, b.vals, b.cmp)
	}

	return (*v).parseContent(sub)
}

func (b blockCodec[K, V]) Print(out *Output, indent int, v *Switch[K, V]) {
	out.WriteString("{").Lf()

	if v != nil {
		v.Print(out, indent+1)
	}

	out.Indent(indent).WriteString("}")
}

func (b blockCodec[K, V]) Syntax() string {
	return fmt.Sprintf("{ [ %s : %s ]* }", b.keys.Syntax(), b.vals.Syntax())
}
