package section

import (
	"fmt"

	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
)

// DequeMeta is the fixed-size metadata record of a circular deque.
//
// Layout (u64 fields, in order):
//
//	0-7    max_length
//	8-15   element_size
//	16-23  max_bytes
//	24-31  start
//	32-39  length
//	40-47  max_elements_per_segment
//	48-55  max_bytes_per_segment
type DequeMeta struct {
	MaxLength             uint64
	ElementSize           uint64
	MaxBytes              uint64
	Start                 uint64 // ring index of the front element
	Length                uint64
	MaxElementsPerSegment uint64
	MaxBytesPerSegment    uint64
}

// NewDequeMeta creates an empty deque record for the given geometry.
func NewDequeMeta(g Geometry) DequeMeta {
	return DequeMeta{
		MaxLength:             g.MaxLength,
		ElementSize:           g.ElementSize,
		MaxBytes:              g.MaxBytes,
		MaxElementsPerSegment: g.ElementsPerSegment,
		MaxBytesPerSegment:    g.BytesPerSegment,
	}
}

// Geometry returns the layout described by the record.
func (m *DequeMeta) Geometry() Geometry {
	return Geometry{
		MaxLength:          m.MaxLength,
		ElementSize:        m.ElementSize,
		MaxBytes:           m.MaxBytes,
		ElementsPerSegment: m.MaxElementsPerSegment,
		BytesPerSegment:    m.MaxBytesPerSegment,
	}
}

// Validate checks the record's invariants.
func (m *DequeMeta) Validate() error {
	if err := m.Geometry().Validate(); err != nil {
		return err
	}
	if m.Length > m.MaxLength {
		return fmt.Errorf("%w: length %d exceeds max length %d", errs.ErrCorruptMeta, m.Length, m.MaxLength)
	}
	if m.Start >= m.MaxLength {
		return fmt.Errorf("%w: start %d out of ring of %d", errs.ErrCorruptMeta, m.Start, m.MaxLength)
	}

	return nil
}

// Parse parses the record from a byte slice.
//
// Parameters:
//   - engine: byte order of the stored fields
//   - data: exactly DequeMetaSize bytes
//
// Returns:
//   - error: ErrInvalidMetaSize on a size mismatch, ErrCorruptMeta when invariants fail
func (m *DequeMeta) Parse(engine endian.EndianEngine, data []byte) error {
	if len(data) != DequeMetaSize {
		return fmt.Errorf("%w: deque record is %d bytes, want %d", errs.ErrInvalidMetaSize, len(data), DequeMetaSize)
	}

	var f [7]uint64
	endian.Uint64s(engine, data, f[:])
	*m = DequeMeta{
		MaxLength:             f[0],
		ElementSize:           f[1],
		MaxBytes:              f[2],
		Start:                 f[3],
		Length:                f[4],
		MaxElementsPerSegment: f[5],
		MaxBytesPerSegment:    f[6],
	}

	return m.Validate()
}

// Bytes serializes the record.
func (m *DequeMeta) Bytes(engine endian.EndianEngine) []byte {
	b := make([]byte, DequeMetaSize)
	endian.PutUint64s(engine, b,
		m.MaxLength, m.ElementSize, m.MaxBytes, m.Start, m.Length,
		m.MaxElementsPerSegment, m.MaxBytesPerSegment)

	return b
}

// ParseDequeMeta parses a little-endian deque record.
func ParseDequeMeta(data []byte) (DequeMeta, error) {
	m := DequeMeta{}
	if err := m.Parse(endian.GetLittleEndianEngine(), data); err != nil {
		return DequeMeta{}, err
	}

	return m, nil
}
