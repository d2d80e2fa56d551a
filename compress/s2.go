package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Compressor compresses segments as S2 blocks.
//
// Segments use the "better" encoder: it finds the long zero runs past a collection's live
// region at little extra cost over the default one.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates an S2 codec.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress encodes data as one S2 block. Empty input yields nil.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.EncodeBetter(nil, data), nil
}

// Decompress decodes an S2 block. The block header records the decoded length.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}

// decompressSized rejects a block whose header disagrees with rawSize before allocating.
func (c S2Compressor) decompressSized(data []byte, rawSize int) ([]byte, error) {
	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, err
	}
	if n != rawSize {
		return nil, fmt.Errorf("s2 block decodes to %d bytes, want %d", n, rawSize)
	}

	return s2.Decode(make([]byte, rawSize), data)
}
