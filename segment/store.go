// Package segment maps logical byte positions of a collection onto an ordered sequence of
// fixed-capacity byte segments.
//
// A Store is an arena of segments addressed by ordinal index. Engines never keep references
// to segment memory across calls; they address elements through the Store or through a
// Cursor, which walks element by element and handles the two boundary crossings a
// segmented collection has:
//
//   - local segment boundary: the offset reaches BytesPerSegment, continue at the next
//     segment with offset 0
//   - ring boundary (deque only): the absolute position reaches the ring size in bytes,
//     continue at segment 0, offset 0
//
// The ring boundary is checked first because both can occur on the same step.
//
// Every segment written through the Store or a Cursor is recorded in a roaring bitmap of
// dirty segment indexes, which incremental snapshots consume.
package segment

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/arloliu/segcoll/errs"
)

// Store is an arena of fixed-capacity segments backing one collection.
//
// A Store is not safe for concurrent use. The owner grants exclusive access for the
// duration of each engine call.
type Store struct {
	segments        [][]byte
	bytesPerSegment uint64
	maxBytes        uint64
	dirty           *roaring.Bitmap
}

// NewStore creates a Store over the given segments.
//
// The segments must cover maxBytes: every segment but the last needed one must hold at
// least bytesPerSegment bytes, and the last must hold the remainder. Segments beyond the
// ones needed are ignored.
//
// Parameters:
//   - bytesPerSegment: capacity of a full segment, a whole multiple of the element size
//   - maxBytes: total collection size in bytes
//   - segments: segment buffers in ordinal order
//
// Returns:
//   - *Store: the segment arena
//   - error: ErrInvalidGeometry for a zero segment size, ErrNotEnoughSegments when the
//     segments do not cover maxBytes
func NewStore(bytesPerSegment, maxBytes uint64, segments ...[]byte) (*Store, error) {
	if bytesPerSegment == 0 {
		return nil, fmt.Errorf("%w: zero segment size", errs.ErrInvalidGeometry)
	}

	need := (maxBytes + bytesPerSegment - 1) / bytesPerSegment
	if uint64(len(segments)) < need {
		return nil, fmt.Errorf("%w: have %d, need %d", errs.ErrNotEnoughSegments, len(segments), need)
	}

	for i := range need {
		want := min(bytesPerSegment, maxBytes-i*bytesPerSegment)
		if uint64(len(segments[i])) < want {
			return nil, fmt.Errorf("%w: segment %d holds %d bytes, need %d",
				errs.ErrNotEnoughSegments, i, len(segments[i]), want)
		}
	}

	return &Store{
		segments:        segments[:need],
		bytesPerSegment: bytesPerSegment,
		maxBytes:        maxBytes,
		dirty:           roaring.New(),
	}, nil
}

// Locate translates a logical byte position into a segment index and an in-segment offset.
func (s *Store) Locate(p uint64) (seg, off uint64) {
	return p / s.bytesPerSegment, p % s.bytesPerSegment
}

// BytesPerSegment returns the capacity of a full segment.
func (s *Store) BytesPerSegment() uint64 { return s.bytesPerSegment }

// MaxBytes returns the total collection size in bytes.
func (s *Store) MaxBytes() uint64 { return s.maxBytes }

// NumSegments returns the number of segments in the store.
func (s *Store) NumSegments() int { return len(s.segments) }

// Segment returns segment i in place.
func (s *Store) Segment(i int) []byte { return s.segments[i] }

// Segments returns all segments in ordinal order. The returned slice aliases the store.
func (s *Store) Segments() [][]byte { return s.segments }

// ElementAt returns the element at dense index in place.
//
// The returned slice aliases segment memory; callers that modify it must call MarkDirty
// for the segment, or use WriteElement instead.
func (s *Store) ElementAt(index, elementSize uint64) []byte {
	seg, off := s.Locate(index * elementSize)
	return s.segments[seg][off : off+elementSize]
}

// WriteElement copies src into the element at dense index.
func (s *Store) WriteElement(index uint64, src []byte) {
	elementSize := uint64(len(src))
	seg, off := s.Locate(index * elementSize)
	copy(s.segments[seg][off:off+elementSize], src)
	s.MarkDirty(seg)
}

// Swap exchanges the elements at dense indexes i and j, which may live in different
// segments. scratch must hold at least elementSize bytes.
func (s *Store) Swap(i, j, elementSize uint64, scratch []byte) {
	if i == j {
		return
	}

	a := s.ElementAt(i, elementSize)
	b := s.ElementAt(j, elementSize)
	tmp := scratch[:elementSize]
	copy(tmp, a)
	copy(a, b)
	copy(b, tmp)

	s.MarkDirty(i * elementSize / s.bytesPerSegment)
	s.MarkDirty(j * elementSize / s.bytesPerSegment)
}

// MarkDirty records that segment seg was modified.
func (s *Store) MarkDirty(seg uint64) {
	s.dirty.Add(uint32(seg)) //nolint:gosec // segment counts are far below 2^32
}

// Dirty returns a copy of the set of segment indexes modified since the last ResetDirty.
func (s *Store) Dirty() *roaring.Bitmap {
	return s.dirty.Clone()
}

// MarkAllDirty marks every segment as modified.
func (s *Store) MarkAllDirty() {
	s.dirty.AddRange(0, uint64(len(s.segments)))
}

// ResetDirty clears the dirty set.
func (s *Store) ResetDirty() {
	s.dirty.Clear()
}
