package compress

// ZstdCompressor provides Zstandard compression, the best ratio of the built-in codecs.
//
// The default build uses the pure Go encoder from klauspost/compress. Building with
// `-tags gozstd` and cgo enabled switches to the libzstd binding from valyala/gozstd.
// Both produce standard zstd frames, so snapshots are readable by either build.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(segment)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
