package section

import (
	"fmt"

	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
)

// VectorMeta is the fixed-size metadata record of an append vector.
//
// Layout (u64 fields, in order): max_length, element_size, length,
// max_elements_per_segment, max_bytes_per_segment. The vector record does not
// store max_bytes; it is derived.
type VectorMeta struct {
	MaxLength             uint64
	ElementSize           uint64
	Length                uint64
	MaxElementsPerSegment uint64
	MaxBytesPerSegment    uint64
}

// NewVectorMeta creates an empty vector record for the given geometry.
func NewVectorMeta(g Geometry) VectorMeta {
	return VectorMeta{
		MaxLength:             g.MaxLength,
		ElementSize:           g.ElementSize,
		MaxElementsPerSegment: g.ElementsPerSegment,
		MaxBytesPerSegment:    g.BytesPerSegment,
	}
}

// Geometry returns the layout described by the record.
func (m *VectorMeta) Geometry() Geometry {
	return Geometry{
		MaxLength:          m.MaxLength,
		ElementSize:        m.ElementSize,
		MaxBytes:           m.MaxLength * m.ElementSize,
		ElementsPerSegment: m.MaxElementsPerSegment,
		BytesPerSegment:    m.MaxBytesPerSegment,
	}
}

// Validate checks the record's invariants.
func (m *VectorMeta) Validate() error {
	if err := m.Geometry().Validate(); err != nil {
		return err
	}
	if m.Length > m.MaxLength {
		return fmt.Errorf("%w: length %d exceeds max length %d", errs.ErrCorruptMeta, m.Length, m.MaxLength)
	}

	return nil
}

// Parse parses the record from exactly VectorMetaSize bytes.
func (m *VectorMeta) Parse(engine endian.EndianEngine, data []byte) error {
	if len(data) != VectorMetaSize {
		return fmt.Errorf("%w: vector record is %d bytes, want %d", errs.ErrInvalidMetaSize, len(data), VectorMetaSize)
	}

	var f [5]uint64
	endian.Uint64s(engine, data, f[:])
	*m = VectorMeta{
		MaxLength:             f[0],
		ElementSize:           f[1],
		Length:                f[2],
		MaxElementsPerSegment: f[3],
		MaxBytesPerSegment:    f[4],
	}

	return m.Validate()
}

// Bytes serializes the record.
func (m *VectorMeta) Bytes(engine endian.EndianEngine) []byte {
	b := make([]byte, VectorMetaSize)
	endian.PutUint64s(engine, b,
		m.MaxLength, m.ElementSize, m.Length,
		m.MaxElementsPerSegment, m.MaxBytesPerSegment)

	return b
}

// ParseVectorMeta parses a little-endian vector record.
func ParseVectorMeta(data []byte) (VectorMeta, error) {
	m := VectorMeta{}
	if err := m.Parse(endian.GetLittleEndianEngine(), data); err != nil {
		return VectorMeta{}, err
	}

	return m, nil
}
