package deque

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
	"github.com/stretchr/testify/require"
)

func newTestDeque(t testing.TB, maxLength, elementSize, segmentBytes uint64, opts ...Option) *Deque {
	t.Helper()

	g, err := section.NewGeometry(maxLength, elementSize, segmentBytes)
	require.NoError(t, err)

	segs := make([][]byte, 0, g.SegmentCount())
	for _, size := range g.SegmentSizes() {
		segs = append(segs, make([]byte, size))
	}
	store, err := segment.NewStore(g.BytesPerSegment, g.MaxBytes, segs...)
	require.NoError(t, err)

	d, err := New(section.NewDequeMeta(g), store, opts...)
	require.NoError(t, err)

	return d
}

func elems(vals ...byte) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = append(out, v, 0, 0, 0)
	}

	return out
}

func split(data []byte) [][]byte {
	var out [][]byte
	for p := 0; p < len(data); p += 4 {
		out = append(out, data[p:p+4])
	}

	return out
}

func contents(t *testing.T, d *Deque) [][]byte {
	t.Helper()

	out, err := d.Slice(0, d.Len())
	require.NoError(t, err)

	return out
}

func snapshotSegments(d *Deque) [][]byte {
	out := make([][]byte, 0, d.store.NumSegments())
	for _, s := range d.store.Segments() {
		out = append(out, bytes.Clone(s))
	}

	return out
}

// Capacity 5 elements of 4 bytes, 2 elements per segment, 3 segments.
func TestDeque_WorkedExample(t *testing.T) {
	d := newTestDeque(t, 5, 4, 8)
	require.Equal(t, 3, d.store.NumSegments())

	require.NoError(t, d.PushBack(elems(1, 2, 3)))
	require.Equal(t, uint64(3), d.Len())
	require.Equal(t, uint64(0), d.Start())

	front, err := d.PopFront(1)
	require.NoError(t, err)
	require.Equal(t, split(elems(1)), front)
	require.Equal(t, uint64(1), d.Start())
	require.Equal(t, uint64(2), d.Len())

	require.NoError(t, d.PushFront(elems(9)))
	require.Equal(t, uint64(0), d.Start())
	require.Equal(t, uint64(3), d.Len())
	require.Equal(t, split(elems(9, 2, 3)), contents(t, d))

	removed, err := d.RemoveRange(1, 3)
	require.NoError(t, err)
	require.Equal(t, split(elems(2, 3)), removed)
	require.Equal(t, split(elems(9)), contents(t, d))
	require.Equal(t, uint64(1), d.Len())
	require.Equal(t, uint64(0), d.Start())
}

func TestDeque_PushFrontWraps(t *testing.T) {
	d := newTestDeque(t, 5, 4, 8)

	// start 0, pushing 3 to the front wraps the start to slot 2
	require.NoError(t, d.PushFront(elems(7, 8, 9)))
	require.Equal(t, uint64(2), d.Start())
	require.Equal(t, split(elems(7, 8, 9)), contents(t, d))

	// slot 2 is the first element of segment 1, slot 4 the only one of segment 2
	require.Equal(t, byte(7), d.store.Segment(1)[0])
	require.Equal(t, byte(9), d.store.Segment(2)[0])

	require.NoError(t, d.PushBack(elems(1, 2)))
	require.Equal(t, split(elems(7, 8, 9, 1, 2)), contents(t, d))
	require.Equal(t, byte(1), d.store.Segment(0)[0])
}

func TestDeque_FIFO(t *testing.T) {
	d := newTestDeque(t, 7, 4, 12)
	var next, expect byte

	r := rand.New(rand.NewPCG(3, 5))
	for range 500 {
		if r.IntN(2) == 0 {
			k := r.IntN(4)
			if d.Len()+uint64(k) > d.Cap() {
				continue
			}
			batch := make([]byte, 0, k)
			for range k {
				next++
				batch = append(batch, next)
			}
			require.NoError(t, d.PushBack(elems(batch...)))
		} else {
			n := uint64(r.IntN(4))
			if n > d.Len() {
				continue
			}
			got, err := d.PopFront(n)
			require.NoError(t, err)
			for _, e := range got {
				expect++
				require.Equal(t, expect, e[0])
			}
		}
	}
}

func TestDeque_LIFOAtEachEnd(t *testing.T) {
	d := newTestDeque(t, 6, 4, 8)
	require.NoError(t, d.PushBack(elems(100, 101)))
	_, err := d.PopFront(1)
	require.NoError(t, err)

	t.Run("Front", func(t *testing.T) {
		payload := elems(1, 2, 3)
		require.NoError(t, d.PushFront(payload))

		got, err := d.PopFront(3)
		require.NoError(t, err)
		require.Equal(t, split(payload), got)
	})

	t.Run("Back", func(t *testing.T) {
		payload := elems(4, 5, 6, 7)
		require.NoError(t, d.PushBack(payload))

		got, err := d.PopBack(4)
		require.NoError(t, err)
		require.Equal(t, split(payload), got)
	})

	require.Equal(t, split(elems(101)), contents(t, d))
}
