package section

import (
	"fmt"

	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
)

// ManifestEntry records where one segment of a snapshot is stored. It is a fixed size of
// 48 bytes.
//
// Incremental snapshots only rewrite dirty segments, so an entry may point at a blob
// written by an earlier version:
//
//	v1: seg 0 -> v1, seg 1 -> v1, seg 2 -> v1
//	v2 (seg 1 dirty): seg 0 -> v1, seg 1 -> v2, seg 2 -> v1
//
// The blob is named after both the version and the save id of the Save that wrote it.
type ManifestEntry struct {
	// Version is the snapshot version whose blob holds this segment.
	//
	// Offset: 0, Size: 8 bytes
	Version uint64

	// SaveID is the save id of the Save that wrote the blob.
	//
	// Offset: 8, Size: 12 bytes (followed by 4 reserved bytes)
	SaveID [SaveIDSize]byte

	// RawSize is the segment size before compression.
	//
	// Offset: 24, Size: 8 bytes
	RawSize uint64

	// StoredSize is the blob size after compression.
	//
	// Offset: 32, Size: 8 bytes
	StoredSize uint64

	// Checksum is the xxHash64 of the raw segment bytes.
	//
	// Offset: 40, Size: 8 bytes
	Checksum uint64
}

// Bytes returns the entry encoded with the specified endian engine.
func (e *ManifestEntry) Bytes(engine endian.EndianEngine) []byte {
	var b [ManifestEntrySize]byte
	engine.PutUint64(b[0:8], e.Version)
	copy(b[8:20], e.SaveID[:])
	endian.PutUint64s(engine, b[24:], e.RawSize, e.StoredSize, e.Checksum)

	return b[:]
}

// AppendTo appends the encoded entry to dst.
func (e *ManifestEntry) AppendTo(dst []byte, engine endian.EndianEngine) []byte {
	return append(dst, e.Bytes(engine)...)
}

// Parse parses an entry from exactly ManifestEntrySize bytes.
func (e *ManifestEntry) Parse(engine endian.EndianEngine, data []byte) error {
	if len(data) != ManifestEntrySize {
		return fmt.Errorf("%w: entry is %d bytes, want %d", errs.ErrInvalidManifest, len(data), ManifestEntrySize)
	}

	var f [3]uint64
	endian.Uint64s(engine, data[24:], f[:])
	*e = ManifestEntry{Version: engine.Uint64(data[0:8]), RawSize: f[0], StoredSize: f[1], Checksum: f[2]}
	copy(e.SaveID[:], data[8:20])

	return nil
}
