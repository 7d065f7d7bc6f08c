package config

import "fmt"

// Cursor walks key/value pairs forward. Next must be called before the
// first Key or Value.
type Cursor[K, V any] interface {
	Next() bool
	Key() K
	Value() V
}

// Source is any ordered key/value collection with a forward cursor.
type Source[K, V any] interface {
	Cursor() Cursor[K, V]
}

// Pair is one key/value element of a Dense snapshot.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Dense is a frozen, indexable copy of an ordered key/value source.
// It is safe for concurrent reads.
type Dense[K, V any] struct {
	items []Pair[K, V]
}

// NewDense copies every pair of src in traversal order.
func NewDense[K, V any](src Source[K, V]) *Dense[K, V] {
	d, _ := NewDenseFunc(src, func(k K, v V) (K, V, error) {
		return k, v, nil
	})

	return d
}

// NewDenseFunc copies every pair of src through clone. If clone fails the
// pairs copied so far are discarded and the error is returned.
func NewDenseFunc[K, V any](
	src Source[K, V],
	clone func(K, V) (K, V, error),
) (*Dense[K, V], error) {
	size := 0
	for c := src.Cursor(); c.Next(); {
		size++
	}

	items := make([]Pair[K, V], 0, size)

	for c := src.Cursor(); c.Next(); {
		k, v, err := clone(c.Key(), c.Value())
		if err != nil {
			clear(items)

			return nil, fmt.Errorf("copying entry %d: %w", len(items), err)
		}

		items = append(items, Pair[K, V]{Key: k, Value: v})
	}

	return &Dense[K, V]{items: items}, nil
}

// Len returns the number of pairs.
func (d *Dense[K, V]) Len() int {
	return len(d.items)
}

// At returns the i-th pair.
func (d *Dense[K, V]) At(i int) (K, V) {
	return d.items[i].Key, d.items[i].Value
}

// Key returns the i-th key.
func (d *Dense[K, V]) Key(i int) K {
	return d.items[i].Key
}

// Value returns the i-th value.
func (d *Dense[K, V]) Value(i int) V {
	return d.items[i].Value
}

// Pairs returns a copy of all pairs.
func (d *Dense[K, V]) Pairs() []Pair[K, V] {
	out := make([]Pair[K, V], len(d.items))
	copy(out, d.items)

	return out
}
