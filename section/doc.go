// Package section defines the geometry and the bit-exact metadata records of segcoll collections.
//
// Every collection is described by one fixed-size metadata record of unsigned 64-bit fields
// and backed by an ordered sequence of fixed-capacity segments. This package owns the
// arithmetic that derives the segment layout from a collection's capacity and element size,
// and the serialization of the three record kinds.
//
// # Geometry
//
// A host imposes a maximum size on a single segment. NewGeometry rounds that size down to a
// whole number of elements so that no element ever straddles two segments:
//
//	ElementsPerSegment = maxSegmentBytes / ElementSize
//	BytesPerSegment    = ElementsPerSegment * ElementSize
//	SegmentCount       = ceil(MaxLength * ElementSize / BytesPerSegment)
//
// # Record Layouts
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ Deque (56 bytes)                                             │
//	│  max_length, element_size, max_bytes, start, length,         │
//	│  max_elements_per_segment, max_bytes_per_segment             │
//	├──────────────────────────────────────────────────────────────┤
//	│ Heap (48 bytes)                                              │
//	│  max_length, element_size, max_bytes, length,                │
//	│  max_elements_per_segment, max_bytes_per_segment             │
//	├──────────────────────────────────────────────────────────────┤
//	│ Vector (40 bytes)                                            │
//	│  max_length, element_size, length,                           │
//	│  max_elements_per_segment, max_bytes_per_segment             │
//	└──────────────────────────────────────────────────────────────┘
//
// Records written by existing hosts are little-endian; ParseDequeMeta, ParseHeapMeta and
// ParseVectorMeta use that byte order. The Parse and Bytes methods accept any
// endian.EndianEngine.
//
// # Validation
//
// Parse rejects records of the wrong size with errs.ErrInvalidMetaSize and records whose
// derived fields disagree (or whose length/start are out of range) with errs.ErrCorruptMeta.
//
// # Snapshot Manifests
//
// ManifestHeader (64 bytes) and ManifestEntry (48 bytes per segment) frame the snapshot
// manifests written by package snapshot:
//
//	┌──────────┬─────────┬─────────┬──────────┬───────────┬──────────┬─────────┬──────────┬──────────┐
//	│ flag (4) │ version │ name id │ meta     │ segment   │ checksum │ save id │ previous │ reserved │
//	│          │ (8)     │ (8)     │ size (4) │ count (4) │ (8)      │ (12)    │ save (12)│ (4)      │
//	└──────────┴─────────┴─────────┴──────────┴───────────┴──────────┴─────────┴──────────┴──────────┘
//
// Every Save gets its own save id, and all blobs it writes are named after it, so writers
// racing on one version never share a blob. The previous save id links a manifest to the
// one it was derived from. The checksum covers everything after the checksum field.
//
// The flag's options word is always little-endian and carries the magic number and the
// byte order of every other field.
package section
