package section

import (
	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
)

// ManifestFlag is the packed first word of a snapshot manifest.
type ManifestFlag struct {
	// Options is a packed field for various options.
	// Bit 0 is reserved, must be 0.
	// Bit 1 is endianness flag, 0 means little-endian, 1 means big-endian.
	// Bit 2-3 are reserved for future use, must be set to 0.
	// Bit 4-15 are the magic number, 0x5C10 for manifest format v1.
	Options uint16

	// Kind is the collection kind of the snapshotted record.
	Kind uint8
	// CompressionType is the codec applied to every segment blob.
	CompressionType uint8
}

var (
	validKinds = map[uint8]struct{}{
		uint8(format.KindDeque):  {},
		uint8(format.KindHeap):   {},
		uint8(format.KindVector): {},
	}

	validCompressions = map[uint8]struct{}{
		uint8(format.CompressionNone): {},
		uint8(format.CompressionZstd): {},
		uint8(format.CompressionS2):   {},
		uint8(format.CompressionLZ4):  {},
	}
)

// NewManifestFlag creates a little-endian flag for the given kind and codec.
func NewManifestFlag(kind format.CollectionKind, compression format.CompressionType) ManifestFlag {
	flag := ManifestFlag{
		Options:         ManifestMagicV1,
		Kind:            uint8(kind),
		CompressionType: uint8(compression),
	}
	flag.WithLittleEndian()

	return flag
}

// IsLittleEndian returns whether the numeric fields are little-endian.
func (f ManifestFlag) IsLittleEndian() bool {
	return (f.Options & EndiannessMask) == 0
}

// WithLittleEndian sets little-endian byte order.
func (f *ManifestFlag) WithLittleEndian() {
	f.Options &= ^uint16(EndiannessMask)
}

// WithBigEndian sets big-endian byte order.
func (f *ManifestFlag) WithBigEndian() {
	f.Options |= EndiannessMask
}

// GetMagicNumber returns the magic number from the Options field.
func (f ManifestFlag) GetMagicNumber() uint16 {
	return f.Options & MagicNumberMask
}

// CollectionKind returns the typed collection kind.
func (f ManifestFlag) CollectionKind() format.CollectionKind {
	return format.CollectionKind(f.Kind)
}

// Compression returns the typed compression type.
func (f ManifestFlag) Compression() format.CompressionType {
	return format.CompressionType(f.CompressionType)
}

// Validate checks the magic number, reserved bits, kind and compression.
func (f ManifestFlag) Validate() error {
	if f.GetMagicNumber() != ManifestMagicV1 {
		return errs.ErrInvalidHeaderFlags
	}
	if (f.Options & ReservedBitsMask) != 0 {
		return errs.ErrInvalidHeaderFlags
	}
	if _, ok := validKinds[f.Kind]; !ok {
		return errs.ErrInvalidHeaderFlags
	}
	if _, ok := validCompressions[f.CompressionType]; !ok {
		return errs.ErrInvalidHeaderFlags
	}

	return nil
}

// GetEndianEngine returns the endian engine selected by the flag.
func (f ManifestFlag) GetEndianEngine() endian.EndianEngine {
	if f.IsLittleEndian() {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}
