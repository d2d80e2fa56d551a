package section

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/segcoll/errs"
)

// Geometry describes how a collection of fixed-size elements is laid out across
// fixed-capacity segments.
//
// A segment always holds a whole number of elements, so BytesPerSegment is the largest
// multiple of ElementSize not exceeding the host's maximum segment size.
type Geometry struct {
	// MaxLength is the capacity of the collection in elements.
	MaxLength uint64
	// ElementSize is the number of bytes per element.
	ElementSize uint64
	// MaxBytes is MaxLength * ElementSize.
	MaxBytes uint64
	// ElementsPerSegment is the number of elements stored in one full segment.
	ElementsPerSegment uint64
	// BytesPerSegment is ElementsPerSegment * ElementSize.
	BytesPerSegment uint64
}

// NewGeometry derives the layout of a collection from its capacity, element size and
// the host's maximum segment size in bytes.
//
// Parameters:
//   - maxLength: capacity in elements, must be positive
//   - elementSize: bytes per element, must be positive and fit in one segment
//   - maxSegmentBytes: host-imposed maximum size of a single segment
//
// Returns:
//   - Geometry: derived layout
//   - error: ErrInvalidGeometry when any constraint is violated or MaxBytes overflows
func NewGeometry(maxLength, elementSize, maxSegmentBytes uint64) (Geometry, error) {
	if maxLength == 0 || elementSize == 0 {
		return Geometry{}, fmt.Errorf("%w: max length %d, element size %d", errs.ErrInvalidGeometry, maxLength, elementSize)
	}
	if elementSize > maxSegmentBytes {
		return Geometry{}, fmt.Errorf("%w: element size %d exceeds segment size %d",
			errs.ErrInvalidGeometry, elementSize, maxSegmentBytes)
	}

	hi, maxBytes := bits.Mul64(maxLength, elementSize)
	if hi != 0 {
		return Geometry{}, fmt.Errorf("%w: %d elements of %d bytes overflow", errs.ErrInvalidGeometry, maxLength, elementSize)
	}

	perSegment := maxSegmentBytes / elementSize

	return Geometry{
		MaxLength:          maxLength,
		ElementSize:        elementSize,
		MaxBytes:           maxBytes,
		ElementsPerSegment: perSegment,
		BytesPerSegment:    perSegment * elementSize,
	}, nil
}

// SegmentCount returns the number of segments needed to cover MaxBytes.
func (g Geometry) SegmentCount() uint64 {
	if g.BytesPerSegment == 0 {
		return 0
	}

	return (g.MaxBytes + g.BytesPerSegment - 1) / g.BytesPerSegment
}

// SegmentSizes returns the size of every segment in order. All segments are
// BytesPerSegment long except possibly the last one.
func (g Geometry) SegmentSizes() []uint64 {
	sizes := make([]uint64, 0, g.SegmentCount())
	for remaining := g.MaxBytes; remaining > 0; {
		size := min(remaining, g.BytesPerSegment)
		sizes = append(sizes, size)
		remaining -= size
	}

	return sizes
}

// Validate checks that the derived fields agree with each other.
func (g Geometry) Validate() error {
	switch {
	case g.MaxLength == 0 || g.ElementSize == 0 || g.ElementsPerSegment == 0:
		return fmt.Errorf("%w: zero sized field", errs.ErrCorruptMeta)
	case g.MaxBytes/g.ElementSize != g.MaxLength || g.MaxBytes%g.ElementSize != 0:
		return fmt.Errorf("%w: max bytes %d != %d * %d", errs.ErrCorruptMeta, g.MaxBytes, g.MaxLength, g.ElementSize)
	case g.BytesPerSegment != g.ElementsPerSegment*g.ElementSize:
		return fmt.Errorf("%w: segment bytes %d != %d * %d",
			errs.ErrCorruptMeta, g.BytesPerSegment, g.ElementsPerSegment, g.ElementSize)
	}

	return nil
}
