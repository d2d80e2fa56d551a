package section

// offset and record sizes of the metadata records
const (
	FieldSize      = 8  // every metadata field is a u64
	DequeMetaSize  = 56 // 7 fields
	HeapMetaSize   = 48 // 6 fields
	VectorMetaSize = 40 // 5 fields
)

// DefaultMaxSegmentBytes is the default upper bound of a single segment allocation (10MiB).
// It is configuration, not an engine constant: callers may pass any size to NewGeometry.
const DefaultMaxSegmentBytes = 10 * 1024 * 1024

// snapshot manifest layout
const (
	ManifestHeaderSize = 64 // fixed header at the start of every manifest
	ManifestEntrySize  = 48 // one entry per segment, after the metadata record
	SaveIDSize         = 12 // unique id of one Save, shared by every blob it writes
	// ManifestChecksumOffset is the first manifest byte covered by the header checksum.
	ManifestChecksumOffset = 36

	// ManifestMagicV1 occupies bits 4-15 of the flag options.
	ManifestMagicV1 = 0x5C10
	// EndiannessMask selects big-endian numeric fields when set.
	EndiannessMask = 0x0002
	// MagicNumberMask selects the magic number bits.
	MagicNumberMask = 0xFFF0
	// ReservedBitsMask must be zero.
	ReservedBitsMask = 0x000D
)
