package hash

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"long string", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
		{"another string", "another test string", 0x212a22f593810bec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, ID(tt.data))
			assert.Equal(t, tt.id, Checksum([]byte(tt.data)))
		})
	}
}

func TestChecksumSegments(t *testing.T) {
	a := []byte("segment-zero")
	b := []byte("segment-one")

	joined := append(append([]byte{}, a...), b...)

	assert.Equal(t, Checksum(joined), ChecksumSegments(a, b))
	assert.Equal(t, Checksum(nil), ChecksumSegments())
	assert.NotEqual(t, ChecksumSegments(a, b), ChecksumSegments(b, a))
}

func randBytes(n int) []byte {
	r := rand.New(rand.NewPCG(1, 2))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.IntN(256))
	}

	return b
}

func BenchmarkChecksum(b *testing.B) {
	data := randBytes(64 * 1024)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for b.Loop() {
		Checksum(data)
	}
}
