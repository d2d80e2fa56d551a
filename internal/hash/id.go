// Package hash provides the xxHash64 digests used by snapshots.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of a collection name.
func ID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Checksum computes the xxHash64 of a segment payload.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ChecksumSegments computes a single digest over several buffers in order, without
// concatenating them.
func ChecksumSegments(segments ...[]byte) uint64 {
	d := xxhash.New()
	for _, s := range segments {
		_, _ = d.Write(s)
	}

	return d.Sum64()
}
