package compress

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/segcoll/format"
)

var allTypes = []format.CompressionType{
	format.CompressionNone,
	format.CompressionZstd,
	format.CompressionS2,
	format.CompressionLZ4,
}

// segmentData mimics a partially filled segment: little-endian counters followed by zeros.
func segmentData(size int, fill float64) []byte {
	data := make([]byte, size)
	live := int(float64(size) * fill)
	for i := 0; i+8 <= live; i += 8 {
		data[i] = byte(i / 8)
		data[i+1] = byte(i / 2048)
	}

	return data
}

func randomData(size int, seed int64) []byte {
	data := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(data)

	return data
}

func TestGetCodec(t *testing.T) {
	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err, ct.String())
		require.NotNil(t, codec)

		created, err := CreateCodec(ct, "segment")
		require.NoError(t, err)
		require.IsType(t, codec, created)
	}

	_, err := GetCodec(format.CompressionType(0x7f))
	require.Error(t, err)

	_, err = CreateCodec(format.CompressionType(0x7f), "segment")
	require.ErrorContains(t, err, "invalid segment compression")
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"tiny":       {1, 2, 3},
		"sparse":     segmentData(64*1024, 0.1),
		"full":       segmentData(64*1024, 1),
		"random":     randomData(16*1024, 7),
		"odd length": segmentData(1000, 0.5),
	}

	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		for name, data := range payloads {
			t.Run(ct.String()+"/"+name, func(t *testing.T) {
				packed, err := codec.Compress(data)
				require.NoError(t, err)

				raw, err := codec.Decompress(packed)
				require.NoError(t, err)
				require.True(t, bytes.Equal(data, raw))

				raw, err = DecompressSized(codec, packed, len(data))
				require.NoError(t, err)
				require.True(t, bytes.Equal(data, raw))
			})
		}
	}
}

func TestAllCodecs_SparseSegmentsShrink(t *testing.T) {
	data := segmentData(256*1024, 0.05)

	for _, ct := range allTypes[1:] {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		packed, err := codec.Compress(data)
		require.NoError(t, err)
		require.Less(t, len(packed), len(data)/10, ct.String())
	}
}

func TestAllCodecs_EmptyData(t *testing.T) {
	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		packed, err := codec.Compress(nil)
		require.NoError(t, err)
		require.Empty(t, packed)

		raw, err := codec.Decompress(nil)
		require.NoError(t, err)
		require.Empty(t, raw)

		raw, err = DecompressSized(codec, packed, 0)
		require.NoError(t, err)
		require.Empty(t, raw)
	}
}

func TestAllCodecs_InvalidData(t *testing.T) {
	garbage := []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8}

	for _, ct := range allTypes[1:] {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		_, err = DecompressSized(codec, garbage, 4096)
		require.Error(t, err, ct.String())
	}
}

func TestDecompressSized_SizeMismatch(t *testing.T) {
	data := segmentData(4096, 0.5)

	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		packed, err := codec.Compress(data)
		require.NoError(t, err)

		_, err = DecompressSized(codec, packed, len(data)+8)
		require.Error(t, err, ct.String())
	}

	_, err := DecompressSized(NewNoOpCompressor(), []byte{1}, 0)
	require.Error(t, err)
}

func TestAllCodecs_ConcurrentUsage(t *testing.T) {
	data := segmentData(32*1024, 0.3)

	for _, ct := range allTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errCh := make(chan error, 16)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				packed, err := codec.Compress(data)
				if err != nil {
					errCh <- err
					return
				}
				raw, err := DecompressSized(codec, packed, len(data))
				if err != nil {
					errCh <- err
					return
				}
				if !bytes.Equal(raw, data) {
					errCh <- bytes.ErrTooLarge
				}
			}()
		}
		wg.Wait()
		close(errCh)

		for err := range errCh {
			require.NoError(t, err, ct.String())
		}
	}
}

func TestCompressionStats(t *testing.T) {
	var s CompressionStats
	require.Zero(t, s.CompressionRatio())
	require.Zero(t, s.SpaceSavings())

	s.Algorithm = format.CompressionS2
	s.Add(1000, 200)
	s.Add(1000, 300)

	require.Equal(t, int64(2000), s.OriginalSize)
	require.Equal(t, int64(500), s.CompressedSize)
	require.InDelta(t, 0.25, s.CompressionRatio(), 1e-9)
	require.InDelta(t, 75.0, s.SpaceSavings(), 1e-9)
}

func BenchmarkAllCodecs_Segment(b *testing.B) {
	data := segmentData(1024*1024, 0.25)

	for _, ct := range allTypes {
		codec, _ := GetCodec(ct)
		packed, _ := codec.Compress(data)

		b.Run(ct.String()+"/Compress", func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for b.Loop() {
				_, _ = codec.Compress(data)
			}
		})
		b.Run(ct.String()+"/Decompress", func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for b.Loop() {
				_, _ = DecompressSized(codec, packed, len(data))
			}
		})
	}
}
