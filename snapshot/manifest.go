package snapshot

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
	"github.com/arloliu/segcoll/internal/hash"
	"github.com/arloliu/segcoll/section"
)

// Manifest describes one committed snapshot version: the collection's metadata record and
// where each of its segments is stored.
type Manifest struct {
	Version uint64
	// SaveID names the blobs written by the Save that produced this manifest.
	SaveID xid.ID
	// PrevSaveID is the save id of the version this one was derived from, or the nil id.
	PrevSaveID  xid.ID
	Kind        format.CollectionKind
	Compression format.CompressionType
	Meta        []byte
	Entries     []section.ManifestEntry
}

// SegmentKey returns the blob name of segment index as written by the Save with the given
// version and save id.
func SegmentKey(name string, index int, version uint64, saveID xid.ID) string {
	return fmt.Sprintf("%s/seg-%d-v%d-%s", name, index, version, saveID)
}

// ManifestKey returns the blob name of a manifest.
func ManifestKey(name string, version uint64, saveID xid.ID) string {
	return fmt.Sprintf("%s/manifest-v%d-%s", name, version, saveID)
}

func entryKey(name string, index int, e section.ManifestEntry) string {
	return SegmentKey(name, index, e.Version, xid.ID(e.SaveID))
}

func isBigEndian(engine endian.EndianEngine) bool {
	return engine.Uint16([]byte{0, 1}) == 1
}

// Bytes encodes the manifest of the named collection.
func (m *Manifest) Bytes(name string, engine endian.EndianEngine) []byte {
	return m.AppendTo(nil, name, engine)
}

// AppendTo appends the encoded manifest of the named collection to dst.
func (m *Manifest) AppendTo(dst []byte, name string, engine endian.EndianEngine) []byte {
	h := section.ManifestHeader{
		Flag:         section.NewManifestFlag(m.Kind, m.Compression),
		Version:      m.Version,
		NameID:       hash.ID(name),
		MetaSize:     uint32(len(m.Meta)),    //nolint:gosec // metadata records are at most 56 bytes
		SegmentCount: uint32(len(m.Entries)), //nolint:gosec // bounded by the provider
		SaveID:       m.SaveID,
		PrevSaveID:   m.PrevSaveID,
	}
	if isBigEndian(engine) {
		h.Flag.WithBigEndian()
	}
	engine = h.Flag.GetEndianEngine()

	start := len(dst)
	dst = append(dst, h.Bytes()...)
	dst = append(dst, m.Meta...)
	for i := range m.Entries {
		dst = m.Entries[i].AppendTo(dst, engine)
	}

	h.Checksum = hash.Checksum(dst[start+section.ManifestChecksumOffset:])
	copy(dst[start:], h.Bytes())

	return dst
}

// ParseManifest decodes and verifies the manifest of the named collection.
//
// Returns:
//   - Manifest: the decoded manifest
//   - error: header errors, ErrInvalidManifest for a layout or name mismatch,
//     ErrChecksumMismatch when the manifest is corrupted
func ParseManifest(name string, data []byte) (Manifest, error) {
	h, err := section.ParseManifestHeader(data)
	if err != nil {
		return Manifest{}, err
	}
	if h.NameID != hash.ID(name) {
		return Manifest{}, fmt.Errorf("%w: manifest belongs to another collection", errs.ErrInvalidManifest)
	}

	kind := h.Flag.CollectionKind()
	if int(h.MetaSize) != kind.MetaSize() {
		return Manifest{}, fmt.Errorf("%w: %s record of %d bytes", errs.ErrInvalidMetaSize, kind, h.MetaSize)
	}

	body := data[section.ManifestHeaderSize:]
	want := int(h.MetaSize) + int(h.SegmentCount)*section.ManifestEntrySize
	if len(body) != want {
		return Manifest{}, fmt.Errorf("%w: body is %d bytes, want %d", errs.ErrInvalidManifest, len(body), want)
	}
	ids := data[section.ManifestChecksumOffset:section.ManifestHeaderSize]
	if hash.ChecksumSegments(ids, body[:h.MetaSize], body[h.MetaSize:]) != h.Checksum {
		return Manifest{}, fmt.Errorf("%w: %s manifest v%d", errs.ErrChecksumMismatch, name, h.Version)
	}

	engine := h.Flag.GetEndianEngine()
	m := Manifest{
		Version:     h.Version,
		SaveID:      xid.ID(h.SaveID),
		PrevSaveID:  xid.ID(h.PrevSaveID),
		Kind:        kind,
		Compression: h.Flag.Compression(),
		Meta:        append([]byte(nil), body[:h.MetaSize]...),
		Entries:     make([]section.ManifestEntry, h.SegmentCount),
	}

	entries := body[h.MetaSize:]
	for i := range m.Entries {
		off := i * section.ManifestEntrySize
		if err := m.Entries[i].Parse(engine, entries[off:off+section.ManifestEntrySize]); err != nil {
			return Manifest{}, err
		}
	}

	return m, nil
}
