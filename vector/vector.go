// Package vector implements an append vector over segmented storage.
//
// Elements are laid out densely from position 0; the vector never wraps, so every access
// is a plain translation of the element index into a (segment, offset) pair. Every
// operation validates its arguments before the first byte is written, so a rejected call
// leaves the metadata record and all segments untouched.
package vector

import (
	"fmt"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/internal/options"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
)

type config struct {
	legacyBounds bool
}

// Option configures a Vector.
type Option = options.Option[*config]

// WithLegacyBounds makes Slice, Get, RemoveRange and Remove reject any range whose start
// or end is not strictly below the length, as collections written by earlier hosts did.
// With the option the last element can never be read or removed by index.
func WithLegacyBounds() Option {
	return options.NoError(func(c *config) {
		c.legacyBounds = true
	})
}

// Vector is an append vector of fixed-size elements stored across segments.
type Vector struct {
	meta         section.VectorMeta
	store        *segment.Store
	elementSize  uint64
	legacyBounds bool
}

// New creates a Vector over an initialized metadata record and its segments.
//
// Parameters:
//   - meta: the collection's metadata record
//   - store: segments covering meta's byte size
//   - opts: optional configuration
//
// Returns:
//   - *Vector: the engine
//   - error: ErrCorruptMeta if meta is inconsistent or does not match the store
func New(meta section.VectorMeta, store *segment.Store, opts ...Option) (*Vector, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if store.BytesPerSegment() != meta.MaxBytesPerSegment || store.MaxBytes() < meta.MaxLength*meta.ElementSize {
		return nil, fmt.Errorf("%w: store geometry does not match vector record", errs.ErrCorruptMeta)
	}

	cfg := &config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Vector{
		meta:         meta,
		store:        store,
		elementSize:  meta.ElementSize,
		legacyBounds: cfg.legacyBounds,
	}, nil
}

// Len returns the number of elements.
func (v *Vector) Len() uint64 { return v.meta.Length }

// Cap returns the capacity in elements.
func (v *Vector) Cap() uint64 { return v.meta.MaxLength }

// Meta returns the current metadata record.
func (v *Vector) Meta() section.VectorMeta { return v.meta }

// Push appends the elements in data, a whole number of elements.
func (v *Vector) Push(data []byte) error {
	k, err := v.count(data)
	if err != nil {
		return err
	}
	if v.meta.Length+k > v.meta.MaxLength {
		return fmt.Errorf("%w: push %d onto %d of %d", errs.ErrCapacity, k, v.meta.Length, v.meta.MaxLength)
	}
	if k == 0 {
		return nil
	}

	c := v.cursor(v.meta.Length)
	c.WriteAll(data)
	v.meta.Length += k

	return nil
}

// Pop removes the last n elements and returns them in storage order.
func (v *Vector) Pop(n uint64) ([][]byte, error) {
	if v.meta.Length < n {
		return nil, fmt.Errorf("%w: pop %d of %d", errs.ErrUnderflow, n, v.meta.Length)
	}

	c := v.cursor(v.meta.Length - n)
	out := c.ReadN(n)
	v.meta.Length -= n

	return out, nil
}

// Get returns a copy of the element at index i.
func (v *Vector) Get(i uint64) ([]byte, error) {
	if i >= v.meta.Length {
		return nil, fmt.Errorf("%w: index %d, length %d", errs.ErrOutOfBounds, i, v.meta.Length)
	}

	out, err := v.Slice(i, i+1)
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

// Slice returns copies of the elements in [i, j).
func (v *Vector) Slice(i, j uint64) ([][]byte, error) {
	if err := v.checkRange(i, j); err != nil {
		return nil, err
	}

	c := v.cursor(i)

	return c.ReadN(j - i), nil
}

// RemoveRange removes the elements in [i, j), shifting the tail down to close the gap,
// and returns the removed elements.
func (v *Vector) RemoveRange(i, j uint64) ([][]byte, error) {
	if err := v.checkRange(i, j); err != nil {
		return nil, err
	}

	c := v.cursor(i)
	removed := c.ReadN(j - i)

	es := v.elementSize
	segment.Compact(v.store, i*es, j*es, v.meta.Length-j, es, 0)
	v.meta.Length -= j - i

	return removed, nil
}

// Remove removes the element at index i.
func (v *Vector) Remove(i uint64) ([]byte, error) {
	out, err := v.RemoveRange(i, i+1)
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

func (v *Vector) cursor(index uint64) segment.Cursor {
	return segment.NewCursor(v.store, index*v.elementSize, v.elementSize, 0)
}

func (v *Vector) count(data []byte) (uint64, error) {
	if uint64(len(data))%v.elementSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a multiple of %d", errs.ErrMalformedInput, len(data), v.elementSize)
	}

	return uint64(len(data)) / v.elementSize, nil
}

func (v *Vector) checkRange(i, j uint64) error {
	length := v.meta.Length
	if i > j || j > length || (v.legacyBounds && (i >= length || j >= length)) {
		return fmt.Errorf("%w: range [%d, %d), length %d", errs.ErrOutOfBounds, i, j, length)
	}

	return nil
}
