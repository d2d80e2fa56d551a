// Package heap implements a binary min-heap over segmented storage.
//
// Elements are laid out densely at indexes [0, length) with the usual relations: the parent
// of i is (i-1)/2 and its children are 2i+1 and 2i+2. Indexes are translated into
// (segment, offset) pairs the same way as for a vector, so a swap may touch two segments.
//
// Ordering comes from an injected Comparator; the default is CompareUnsignedLE.
package heap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/internal/options"
	"github.com/arloliu/segcoll/internal/pool"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
)

type config struct {
	cmp Comparator
}

// Option configures a Heap.
type Option = options.Option[*config]

// WithComparator sets the element ordering. The root is always the element that sorts first.
func WithComparator(cmp Comparator) Option {
	return options.New(func(c *config) error {
		if cmp == nil {
			return errors.New("heap: nil comparator")
		}
		c.cmp = cmp

		return nil
	})
}

// Heap is a bounded binary min-heap of fixed-size elements stored across segments.
type Heap struct {
	meta        section.HeapMeta
	store       *segment.Store
	elementSize uint64
	cmp         Comparator
}

// New creates a Heap over an initialized metadata record and its segments.
//
// Parameters:
//   - meta: the collection's metadata record
//   - store: segments covering meta.MaxBytes
//   - opts: optional configuration
//
// Returns:
//   - *Heap: the engine
//   - error: ErrCorruptMeta if meta is inconsistent or does not match the store
func New(meta section.HeapMeta, store *segment.Store, opts ...Option) (*Heap, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if store.BytesPerSegment() != meta.MaxBytesPerSegment || store.MaxBytes() < meta.MaxBytes {
		return nil, fmt.Errorf("%w: store geometry does not match heap record", errs.ErrCorruptMeta)
	}

	cfg := &config{cmp: CompareUnsignedLE}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Heap{
		meta:        meta,
		store:       store,
		elementSize: meta.ElementSize,
		cmp:         cfg.cmp,
	}, nil
}

// Len returns the number of elements.
func (h *Heap) Len() uint64 { return h.meta.Length }

// Cap returns the capacity in elements.
func (h *Heap) Cap() uint64 { return h.meta.MaxLength }

// Meta returns the current metadata record.
func (h *Heap) Meta() section.HeapMeta { return h.meta }

// Push inserts one element.
func (h *Heap) Push(elem []byte) error {
	if uint64(len(elem)) != h.elementSize {
		return fmt.Errorf("%w: element is %d bytes, want %d", errs.ErrMalformedInput, len(elem), h.elementSize)
	}
	if h.meta.Length >= h.meta.MaxLength {
		return fmt.Errorf("%w: heap holds %d of %d", errs.ErrCapacity, h.meta.Length, h.meta.MaxLength)
	}

	h.store.WriteElement(h.meta.Length, elem)
	h.siftUp(h.meta.Length)
	h.meta.Length++

	return nil
}

// Pop removes and returns the root.
func (h *Heap) Pop() ([]byte, error) {
	if h.meta.Length == 0 {
		return nil, fmt.Errorf("%w: pop from empty heap", errs.ErrUnderflow)
	}

	root := bytes.Clone(h.at(0))

	last := h.meta.Length - 1
	if last > 0 {
		h.store.WriteElement(0, h.at(last))
	}
	h.meta.Length--
	h.siftDown(0, h.meta.Length)

	return root, nil
}

// Peek returns a copy of the root without removing it.
func (h *Heap) Peek() ([]byte, error) {
	if h.meta.Length == 0 {
		return nil, fmt.Errorf("%w: peek at empty heap", errs.ErrUnderflow)
	}

	return bytes.Clone(h.at(0)), nil
}

// Build replaces the heap's contents with the elements in data and restores the heap order
// in O(n) swaps. It is meant for initialization, before any Push or Pop.
func (h *Heap) Build(data []byte) error {
	if uint64(len(data))%h.elementSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of %d", errs.ErrMalformedInput, len(data), h.elementSize)
	}

	n := uint64(len(data)) / h.elementSize
	if n > h.meta.MaxLength {
		return fmt.Errorf("%w: %d initial elements, capacity %d", errs.ErrCapacity, n, h.meta.MaxLength)
	}

	c := segment.NewCursor(h.store, 0, h.elementSize, 0)
	c.WriteAll(data)
	h.meta.Length = n

	for i := n / 2; ; i-- {
		h.siftDown(i, n)
		if i == 0 {
			break
		}
	}

	return nil
}

// Elements returns copies of all elements in storage order.
func (h *Heap) Elements() [][]byte {
	c := segment.NewCursor(h.store, 0, h.elementSize, 0)
	return c.ReadN(h.meta.Length)
}

func (h *Heap) at(i uint64) []byte {
	return h.store.ElementAt(i, h.elementSize)
}

func (h *Heap) siftUp(cur uint64) {
	scratch := pool.GetScratch(int(h.elementSize)) //nolint:gosec // element size fits a segment
	defer pool.PutScratch(scratch)

	for cur != 0 {
		par := (cur - 1) / 2
		if h.cmp(h.at(cur), h.at(par)) >= 0 {
			return
		}
		h.store.Swap(cur, par, h.elementSize, scratch.B)
		cur = par
	}
}

// siftDown restores the heap order below cur within the first n elements.
func (h *Heap) siftDown(cur, n uint64) {
	scratch := pool.GetScratch(int(h.elementSize)) //nolint:gosec // element size fits a segment
	defer pool.PutScratch(scratch)

	for {
		left := 2*cur + 1
		if left >= n {
			return
		}

		child := left
		if right := left + 1; right < n && h.cmp(h.at(right), h.at(left)) < 0 {
			child = right
		}
		if h.cmp(h.at(cur), h.at(child)) <= 0 {
			return
		}

		h.store.Swap(cur, child, h.elementSize, scratch.B)
		cur = child
	}
}
