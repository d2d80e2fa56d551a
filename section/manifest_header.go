package section

import (
	"github.com/arloliu/segcoll/errs"
)

// ManifestHeader is the fixed-size header at the start of a snapshot manifest.
//
// A manifest is laid out as
//
//	header (64 bytes) | metadata record (MetaSize bytes) | SegmentCount entries (48 bytes each)
type ManifestHeader struct {
	// Flag is a packed field for magic number, byte order, kind and codec.
	Flag ManifestFlag // byte offset 0-3
	// Version is the snapshot version this manifest commits.
	Version uint64 // byte offset 4-11
	// NameID is the xxHash64 of the collection name.
	NameID uint64 // byte offset 12-19
	// MetaSize is the length of the metadata record that follows the header.
	MetaSize uint32 // byte offset 20-23
	// SegmentCount is the number of entries after the metadata record.
	SegmentCount uint32 // byte offset 24-27
	// Checksum is the xxHash64 of every manifest byte from offset 36 to the end.
	Checksum uint64 // byte offset 28-35
	// SaveID identifies the Save that wrote this manifest and its segment blobs.
	SaveID [SaveIDSize]byte // byte offset 36-47
	// PrevSaveID identifies the manifest of Version-1 this one was derived from, or is
	// all zero for the first version.
	PrevSaveID [SaveIDSize]byte // byte offset 48-59
	// bytes 60-63 are reserved and written as zero
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be exactly 64 bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize if data is not 64 bytes, or flag validation errors
func (h *ManifestHeader) Parse(data []byte) error {
	if len(data) != ManifestHeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	// options are always little-endian; they select the engine for everything else
	h.Flag.Options = uint16(data[0]) | (uint16(data[1]) << 8)
	h.Flag.Kind = data[2]
	h.Flag.CompressionType = data[3]

	if err := h.Flag.Validate(); err != nil {
		return err
	}

	engine := h.Flag.GetEndianEngine()
	h.Version = engine.Uint64(data[4:12])
	h.NameID = engine.Uint64(data[12:20])
	h.MetaSize = engine.Uint32(data[20:24])
	h.SegmentCount = engine.Uint32(data[24:28])
	h.Checksum = engine.Uint64(data[28:36])
	copy(h.SaveID[:], data[36:48])
	copy(h.PrevSaveID[:], data[48:60])

	return nil
}

// Bytes serializes the header.
func (h *ManifestHeader) Bytes() []byte {
	b := make([]byte, ManifestHeaderSize)

	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = h.Flag.Kind
	b[3] = h.Flag.CompressionType

	engine := h.Flag.GetEndianEngine()
	engine.PutUint64(b[4:12], h.Version)
	engine.PutUint64(b[12:20], h.NameID)
	engine.PutUint32(b[20:24], h.MetaSize)
	engine.PutUint32(b[24:28], h.SegmentCount)
	engine.PutUint64(b[28:36], h.Checksum)
	copy(b[36:48], h.SaveID[:])
	copy(b[48:60], h.PrevSaveID[:])

	return b
}

// ParseManifestHeader parses a ManifestHeader from the start of a manifest.
//
// Parameters:
//   - data: Byte slice containing the manifest (must be at least 64 bytes)
//
// Returns:
//   - ManifestHeader: Parsed header struct
//   - error: ErrInvalidHeaderSize or flag validation errors
func ParseManifestHeader(data []byte) (ManifestHeader, error) {
	if len(data) < ManifestHeaderSize {
		return ManifestHeader{}, errs.ErrInvalidHeaderSize
	}

	h := ManifestHeader{}
	if err := h.Parse(data[:ManifestHeaderSize]); err != nil {
		return ManifestHeader{}, err
	}

	return h, nil
}
