// Package segcoll provides bounded collections of fixed-size elements whose storage is an
// ordered array of independently allocated segments.
//
// Three collection engines share one segment address translator:
//
//   - deque: a circular double-ended queue
//   - heap: a binary min-heap with a pluggable byte comparator
//   - vector: an append-only vector with range removal
//
// Each collection is described by a small fixed-size metadata record (package section) and
// a set of segments (package segment). A segment holds a whole number of elements; no element
// straddles two segments.
//
// # Basic Usage
//
// The constructors in this package allocate the segments in memory:
//
//	d, _ := segcoll.NewDeque(1024, 8, 0)
//	_ = d.PushBack(binary.LittleEndian.AppendUint64(nil, 42))
//	front, _ := d.PopFront(1)
//
//	h, _ := segcoll.NewHeap(1024, 8, 0)
//	_ = h.Push(binary.LittleEndian.AppendUint64(nil, 7))
//	least, _ := h.Pop()
//
// # Package Structure
//
// For hosts that own the segment memory, drive the collections through package processor,
// which decodes binary instructions, provisions segments through a provision.Provider and
// keeps the metadata record consistent. Package snapshot persists collections to a
// blobstore.Store.
package segcoll

import (
	"github.com/arloliu/segcoll/deque"
	"github.com/arloliu/segcoll/heap"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
	"github.com/arloliu/segcoll/vector"
)

// NewStore allocates zeroed in-memory segments for geometry g.
func NewStore(g section.Geometry) (*segment.Store, error) {
	sizes := g.SegmentSizes()
	segs := make([][]byte, len(sizes))
	for i, n := range sizes {
		segs[i] = make([]byte, n)
	}

	return segment.NewStore(g.BytesPerSegment, g.MaxBytes, segs...)
}

func newGeometry(maxLength, elementSize, maxSegmentBytes uint64) (section.Geometry, error) {
	if maxSegmentBytes == 0 {
		maxSegmentBytes = section.DefaultMaxSegmentBytes
	}

	return section.NewGeometry(maxLength, elementSize, maxSegmentBytes)
}

// NewDeque creates an empty in-memory deque.
//
// Parameters:
//   - maxLength: capacity in elements
//   - elementSize: element width in bytes
//   - maxSegmentBytes: upper bound of one segment, 0 selects section.DefaultMaxSegmentBytes
//   - opts: deque options
//
// Returns:
//   - *deque.Deque: the deque
//   - error: ErrInvalidGeometry for an impossible layout
func NewDeque(maxLength, elementSize, maxSegmentBytes uint64, opts ...deque.Option) (*deque.Deque, error) {
	g, err := newGeometry(maxLength, elementSize, maxSegmentBytes)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(g)
	if err != nil {
		return nil, err
	}

	return deque.New(section.NewDequeMeta(g), store, opts...)
}

// NewHeap creates an empty in-memory min-heap. Elements are ordered by
// heap.CompareUnsignedLE unless heap.WithComparator is given.
func NewHeap(maxLength, elementSize, maxSegmentBytes uint64, opts ...heap.Option) (*heap.Heap, error) {
	g, err := newGeometry(maxLength, elementSize, maxSegmentBytes)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(g)
	if err != nil {
		return nil, err
	}

	return heap.New(section.NewHeapMeta(g), store, opts...)
}

// NewVector creates an empty in-memory vector.
func NewVector(maxLength, elementSize, maxSegmentBytes uint64, opts ...vector.Option) (*vector.Vector, error) {
	g, err := newGeometry(maxLength, elementSize, maxSegmentBytes)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(g)
	if err != nil {
		return nil, err
	}

	return vector.New(section.NewVectorMeta(g), store, opts...)
}
