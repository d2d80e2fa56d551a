// Package deque implements a circular double-ended queue over segmented storage.
//
// The deque's state is the pair (start, length) over a ring of MaxLength element slots.
// Logical index i, counted from the front, lives in ring slot (start+i) mod MaxLength, and
// that slot's bytes live in whichever segment the translator maps them to. Every walk
// therefore crosses two kinds of boundary: the end of a segment and the end of the ring.
//
// All validation happens before the first write, so a rejected call leaves the metadata
// record and every segment bit-identical.
//
// # Example
//
//	d, _ := deque.New(meta, store)
//	_ = d.PushBack(payload)
//	front, _ := d.PopFront(1)
package deque

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

// Option configures a Deque.
type Option = options.Option[*config]

// WithLegacyBounds makes Slice, Get, RemoveRange and Remove reject any range whose start
// or end is not strictly below the length, matching collections written by earlier hosts.
// With the option the back element can only be reached through PopBack.
func WithLegacyBounds() Option {
	return options.NoError(func(c *config) {
		c.legacyBounds = true
	})
}

// Deque is a bounded circular deque of fixed-size elements stored across segments.
type Deque struct {
	meta         section.DequeMeta
	store        *segment.Store
	elementSize  uint64
	ringBytes    uint64
	legacyBounds bool
}

// New creates a Deque over an initialized metadata record and its segments.
//
// Parameters:
//   - meta: the collection's metadata record
//   - store: segments covering meta.MaxBytes
//   - opts: optional configuration
//
// Returns:
//   - *Deque: the engine
//   - error: ErrCorruptMeta if meta is inconsistent or does not match the store
func New(meta section.DequeMeta, store *segment.Store, opts ...Option) (*Deque, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if store.BytesPerSegment() != meta.MaxBytesPerSegment || store.MaxBytes() < meta.MaxBytes {
		return nil, fmt.Errorf("%w: store geometry does not match deque record", errs.ErrCorruptMeta)
	}

	cfg := &config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Deque{
		meta:         meta,
		store:        store,
		elementSize:  meta.ElementSize,
		ringBytes:    meta.MaxBytes,
		legacyBounds: cfg.legacyBounds,
	}, nil
}

// Len returns the number of elements.
func (d *Deque) Len() uint64 { return d.meta.Length }

// Cap returns the capacity in elements.
func (d *Deque) Cap() uint64 { return d.meta.MaxLength }

// Start returns the ring slot of the front element.
func (d *Deque) Start() uint64 { return d.meta.Start }

// Meta returns the current metadata record.
func (d *Deque) Meta() section.DequeMeta { return d.meta }

// PushFront inserts the elements in data at the front. The first element of data becomes
// the new front, so the caller's order is preserved.
func (d *Deque) PushFront(data []byte) error {
	k, err := d.reserve(data)
	if err != nil || k == 0 {
		return err
	}

	newStart := (d.meta.Start + d.meta.MaxLength - k) % d.meta.MaxLength
	c := d.cursor(newStart)
	c.WriteAll(data)

	d.meta.Start = newStart
	d.meta.Length += k

	return nil
}

// PushBack appends the elements in data at the back.
func (d *Deque) PushBack(data []byte) error {
	k, err := d.reserve(data)
	if err != nil || k == 0 {
		return err
	}

	c := d.cursor(d.slot(d.meta.Length))
	c.WriteAll(data)

	d.meta.Length += k

	return nil
}

// PopFront removes n elements from the front and returns them front first.
func (d *Deque) PopFront(n uint64) ([][]byte, error) {
	if d.meta.Length < n {
		return nil, fmt.Errorf("%w: pop %d of %d", errs.ErrUnderflow, n, d.meta.Length)
	}

	c := d.cursor(d.meta.Start)
	out := c.ReadN(n)

	d.meta.Start = (d.meta.Start + n) % d.meta.MaxLength
	d.meta.Length -= n

	return out, nil
}

// PopBack removes n elements from the back and returns them in logical order, so the
// back element is last.
func (d *Deque) PopBack(n uint64) ([][]byte, error) {
	if d.meta.Length < n {
		return nil, fmt.Errorf("%w: pop %d of %d", errs.ErrUnderflow, n, d.meta.Length)
	}

	c := d.cursor(d.slot(d.meta.Length - n))
	out := c.ReadN(n)

	d.meta.Length -= n

	return out, nil
}

// PopFrontOne removes and returns the front element.
func (d *Deque) PopFrontOne() ([]byte, error) {
	out, err := d.PopFront(1)
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

// PopBackOne removes and returns the back element.
func (d *Deque) PopBackOne() ([]byte, error) {
	out, err := d.PopBack(1)
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

// Get returns a copy of the element at front-relative index i.
func (d *Deque) Get(i uint64) ([]byte, error) {
	if i >= d.meta.Length {
		return nil, fmt.Errorf("%w: index %d, length %d", errs.ErrOutOfBounds, i, d.meta.Length)
	}

	out, err := d.Slice(i, i+1)
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

// Slice returns copies of the elements at front-relative indexes [i, j).
func (d *Deque) Slice(i, j uint64) ([][]byte, error) {
	if err := d.checkRange(i, j); err != nil {
		return nil, err
	}

	c := d.cursor(d.slot(i))

	return c.ReadN(j - i), nil
}

// RemoveRange removes the elements at front-relative indexes [i, j) and returns them.
// Elements after the range move towards the front to close the gap; Start is unchanged.
func (d *Deque) RemoveRange(i, j uint64) ([][]byte, error) {
	if err := d.checkRange(i, j); err != nil {
		return nil, err
	}

	c := d.cursor(d.slot(i))
	removed := c.ReadN(j - i)

	es := d.elementSize
	segment.Compact(d.store, d.slot(i)*es, d.slot(j)*es, d.meta.Length-j, es, d.ringBytes)
	d.meta.Length -= j - i

	return removed, nil
}

// Remove removes the element at front-relative index i.
func (d *Deque) Remove(i uint64) ([]byte, error) {
	out, err := d.RemoveRange(i, i+1)
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

// slot maps a front-relative index to its ring slot.
func (d *Deque) slot(i uint64) uint64 {
	return (d.meta.Start + i) % d.meta.MaxLength
}

func (d *Deque) cursor(slot uint64) segment.Cursor {
	return segment.NewCursor(d.store, slot*d.elementSize, d.elementSize, d.ringBytes)
}

// reserve validates a push payload and returns its element count.
func (d *Deque) reserve(data []byte) (uint64, error) {
	if uint64(len(data))%d.elementSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a multiple of %d", errs.ErrMalformedInput, len(data), d.elementSize)
	}

	k := uint64(len(data)) / d.elementSize
	if d.meta.Length+k > d.meta.MaxLength {
		return 0, fmt.Errorf("%w: push %d onto %d of %d", errs.ErrCapacity, k, d.meta.Length, d.meta.MaxLength)
	}

	return k, nil
}

func (d *Deque) checkRange(i, j uint64) error {
	length := d.meta.Length
	if i > j || j > length || (d.legacyBounds && (i >= length || j >= length)) {
		return fmt.Errorf("%w: range [%d, %d), length %d", errs.ErrOutOfBounds, i, j, length)
	}

	return nil
}
