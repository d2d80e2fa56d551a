// Package compress provides the codecs applied to segment contents when a collection is
// snapshotted.
//
// Segments are mostly fixed-width records with long runs of zero bytes past the live
// region, so general-purpose block compressors do well on them. Four codecs are available,
// selected by format.CompressionType:
//
//   - None: stores segment bytes as-is
//   - Zstd: best ratio; pure Go by default, cgo (valyala/gozstd) with the gozstd build tag
//   - S2: fast, moderate ratio
//   - LZ4: fastest decompression
//
// Every codec implements Codec:
//
//	codec, err := compress.GetCodec(format.CompressionS2)
//	if err != nil {
//	    return err
//	}
//	packed, _ := codec.Compress(segment)
//	raw, err := compress.DecompressSized(codec, packed, len(segment))
//
// DecompressSized checks that the output has the recorded raw size, and lets codecs that
// cannot recover the size from their own framing (LZ4 blocks) allocate exactly once.
//
// Codecs are stateless values and safe for concurrent use. Encoders and decoders that
// carry internal state are pooled.
package compress
