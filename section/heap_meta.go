package section

import (
	"fmt"

	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
)

// HeapMeta is the fixed-size metadata record of a binary heap.
//
// Layout (u64 fields, in order): max_length, element_size, max_bytes, length,
// max_elements_per_segment, max_bytes_per_segment.
type HeapMeta struct {
	MaxLength             uint64
	ElementSize           uint64
	MaxBytes              uint64
	Length                uint64
	MaxElementsPerSegment uint64
	MaxBytesPerSegment    uint64
}

// NewHeapMeta creates an empty heap record for the given geometry.
func NewHeapMeta(g Geometry) HeapMeta {
	return HeapMeta{
		MaxLength:             g.MaxLength,
		ElementSize:           g.ElementSize,
		MaxBytes:              g.MaxBytes,
		MaxElementsPerSegment: g.ElementsPerSegment,
		MaxBytesPerSegment:    g.BytesPerSegment,
	}
}

// Geometry returns the layout described by the record.
func (m *HeapMeta) Geometry() Geometry {
	return Geometry{
		MaxLength:          m.MaxLength,
		ElementSize:        m.ElementSize,
		MaxBytes:           m.MaxBytes,
		ElementsPerSegment: m.MaxElementsPerSegment,
		BytesPerSegment:    m.MaxBytesPerSegment,
	}
}

// Validate checks the record's invariants.
func (m *HeapMeta) Validate() error {
	if err := m.Geometry().Validate(); err != nil {
		return err
	}
	if m.Length > m.MaxLength {
		return fmt.Errorf("%w: length %d exceeds max length %d", errs.ErrCorruptMeta, m.Length, m.MaxLength)
	}

	return nil
}

// Parse parses the record from exactly HeapMetaSize bytes.
func (m *HeapMeta) Parse(engine endian.EndianEngine, data []byte) error {
	if len(data) != HeapMetaSize {
		return fmt.Errorf("%w: heap record is %d bytes, want %d", errs.ErrInvalidMetaSize, len(data), HeapMetaSize)
	}

	var f [6]uint64
	endian.Uint64s(engine, data, f[:])
	*m = HeapMeta{
		MaxLength:             f[0],
		ElementSize:           f[1],
		MaxBytes:              f[2],
		Length:                f[3],
		MaxElementsPerSegment: f[4],
		MaxBytesPerSegment:    f[5],
	}

	return m.Validate()
}

// Bytes serializes the record.
func (m *HeapMeta) Bytes(engine endian.EndianEngine) []byte {
	b := make([]byte, HeapMetaSize)
	endian.PutUint64s(engine, b,
		m.MaxLength, m.ElementSize, m.MaxBytes, m.Length,
		m.MaxElementsPerSegment, m.MaxBytesPerSegment)

	return b
}

// ParseHeapMeta parses a little-endian heap record.
func ParseHeapMeta(data []byte) (HeapMeta, error) {
	m := HeapMeta{}
	if err := m.Parse(endian.GetLittleEndianEngine(), data); err != nil {
		return HeapMeta{}, err
	}

	return m, nil
}
