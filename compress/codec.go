package compress

import (
	"fmt"

	"github.com/arloliu/segcoll/format"
)

// Compressor compresses one segment.
//
// The returned slice is owned by the caller, except for the no-op codec which returns its
// input. The input is never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor. It returns an error for corrupted input or input
// produced by a different algorithm.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// sizedDecompressor is implemented by codecs that decompress faster when the raw size is
// known up front.
type sizedDecompressor interface {
	decompressSized(data []byte, rawSize int) ([]byte, error)
}

// CompressionStats summarizes the compression of a set of segments.
type CompressionStats struct {
	// Algorithm identifies the compression algorithm used
	Algorithm format.CompressionType

	// OriginalSize is the size of input data before compression
	OriginalSize int64

	// CompressedSize is the size of data after compression
	CompressedSize int64
}

// Add accounts for one compressed segment.
func (s *CompressionStats) Add(original, compressed int) {
	s.OriginalSize += int64(original)
	s.CompressedSize += int64(compressed)
}

// CompressionRatio returns the compression ratio (compressed size / original size).
//
// Returns:
//   - float64: Compression ratio (0.0 if original size is zero)
func (s CompressionStats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage.
func (s CompressionStats) SpaceSavings() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return (1.0 - s.CompressionRatio()) * 100.0
}

// CreateCodec creates a Codec for the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, or LZ4)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: codec instance for the specified type
//   - error: Invalid compression type error
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}

// DecompressSized decompresses data that is known to expand to exactly rawSize bytes.
//
// Parameters:
//   - d: the codec that produced data
//   - data: compressed bytes
//   - rawSize: the recorded uncompressed size
//
// Returns:
//   - []byte: rawSize bytes
//   - error: a codec error, or a size mismatch error
func DecompressSized(d Decompressor, data []byte, rawSize int) ([]byte, error) {
	if rawSize == 0 {
		if len(data) != 0 {
			return nil, fmt.Errorf("compress: %d bytes of payload for an empty segment", len(data))
		}

		return []byte{}, nil
	}

	var (
		out []byte
		err error
	)
	if sd, ok := d.(sizedDecompressor); ok {
		out, err = sd.decompressSized(data, rawSize)
	} else {
		out, err = d.Decompress(data)
	}
	if err != nil {
		return nil, err
	}
	if len(out) != rawSize {
		return nil, fmt.Errorf("compress: decompressed %d bytes, want %d", len(out), rawSize)
	}

	return out, nil
}
