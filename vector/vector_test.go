package vector

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
	"github.com/stretchr/testify/require"
)

func newTestVector(t testing.TB, maxLength, elementSize, segmentBytes uint64, opts ...Option) *Vector {
	t.Helper()

	g, err := section.NewGeometry(maxLength, elementSize, segmentBytes)
	require.NoError(t, err)

	segs := make([][]byte, 0, g.SegmentCount())
	for _, size := range g.SegmentSizes() {
		segs = append(segs, make([]byte, size))
	}
	store, err := segment.NewStore(g.BytesPerSegment, g.MaxBytes, segs...)
	require.NoError(t, err)

	v, err := New(section.NewVectorMeta(g), store, opts...)
	require.NoError(t, err)

	return v
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

func snapshotSegments(v *Vector) [][]byte {
	out := make([][]byte, 0, v.store.NumSegments())
	for _, s := range v.store.Segments() {
		out = append(out, bytes.Clone(s))
	}

	return out
}

func TestVector_PushPop(t *testing.T) {
	v := newTestVector(t, 5, 4, 8)

	require.NoError(t, v.Push(elems(1, 2, 3)))
	require.Equal(t, uint64(3), v.Len())
	require.Equal(t, uint64(5), v.Cap())

	require.NoError(t, v.Push(elems(4)))

	got, err := v.Pop(2)
	require.NoError(t, err)
	require.Equal(t, split(elems(3, 4)), got)
	require.Equal(t, uint64(2), v.Len())

	got, err = v.Slice(0, 2)
	require.NoError(t, err)
	require.Equal(t, split(elems(1, 2)), got)
}

func TestVector_FillAcrossSegments(t *testing.T) {
	v := newTestVector(t, 5, 4, 8)

	require.NoError(t, v.Push(elems(1, 2, 3, 4, 5)))

	for i := range uint64(5) {
		e, err := v.Get(i)
		require.NoError(t, err)
		require.Equal(t, byte(i+1), e[0])
	}
	require.Equal(t, byte(5), v.store.Segment(2)[0])
}

func TestVector_Errors(t *testing.T) {
	t.Run("Capacity leaves state untouched", func(t *testing.T) {
		v := newTestVector(t, 5, 4, 8)
		require.NoError(t, v.Push(elems(1, 2, 3)))
		meta := v.Meta()
		segs := snapshotSegments(v)

		err := v.Push(elems(4, 5, 6))

		require.ErrorIs(t, err, errs.ErrCapacity)
		require.Equal(t, meta, v.Meta())
		require.Equal(t, segs, snapshotSegments(v))
	})

	t.Run("Malformed payload", func(t *testing.T) {
		v := newTestVector(t, 5, 4, 8)
		require.ErrorIs(t, v.Push([]byte{1, 2, 3}), errs.ErrMalformedInput)
		require.Equal(t, uint64(0), v.Len())
	})

	t.Run("Underflow", func(t *testing.T) {
		v := newTestVector(t, 5, 4, 8)
		require.NoError(t, v.Push(elems(1)))

		_, err := v.Pop(2)
		require.ErrorIs(t, err, errs.ErrUnderflow)
		require.Equal(t, uint64(1), v.Len())
	})

	t.Run("Out of bounds", func(t *testing.T) {
		v := newTestVector(t, 5, 4, 8)
		require.NoError(t, v.Push(elems(1, 2)))

		_, err := v.Get(2)
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
		_, err = v.Slice(1, 3)
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
		_, err = v.Slice(2, 1)
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
		_, err = v.RemoveRange(0, 3)
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
	})

	t.Run("Store mismatch", func(t *testing.T) {
		g, err := section.NewGeometry(5, 4, 8)
		require.NoError(t, err)
		store, err := segment.NewStore(4, 20, make([]byte, 4), make([]byte, 4), make([]byte, 4), make([]byte, 4), make([]byte, 4))
		require.NoError(t, err)

		_, err = New(section.NewVectorMeta(g), store)
		require.ErrorIs(t, err, errs.ErrCorruptMeta)
	})
}

func TestVector_ZeroWidth(t *testing.T) {
	v := newTestVector(t, 5, 4, 8)
	require.NoError(t, v.Push(elems(1)))

	require.NoError(t, v.Push(nil))
	got, err := v.Pop(0)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = v.Slice(1, 1)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, uint64(1), v.Len())
}

func TestVector_RemoveRange(t *testing.T) {
	v := newTestVector(t, 7, 4, 8)
	require.NoError(t, v.Push(elems(0, 1, 2, 3, 4, 5, 6)))

	removed, err := v.RemoveRange(1, 4)
	require.NoError(t, err)
	require.Equal(t, split(elems(1, 2, 3)), removed)
	require.Equal(t, uint64(4), v.Len())

	rest, err := v.Slice(0, v.Len())
	require.NoError(t, err)
	require.Equal(t, split(elems(0, 4, 5, 6)), rest)

	// through the last element
	removed, err = v.RemoveRange(2, 4)
	require.NoError(t, err)
	require.Equal(t, split(elems(5, 6)), removed)

	e, err := v.Remove(0)
	require.NoError(t, err)
	require.Equal(t, elems(0), e)

	rest, err = v.Slice(0, v.Len())
	require.NoError(t, err)
	require.Equal(t, split(elems(4)), rest)
}

func TestVector_LegacyBounds(t *testing.T) {
	v := newTestVector(t, 5, 4, 8, WithLegacyBounds())
	require.NoError(t, v.Push(elems(1, 2, 3)))

	_, err := v.Slice(0, 3)
	require.ErrorIs(t, err, errs.ErrOutOfBounds, "legacy bounds reject end == length")

	_, err = v.Get(2)
	require.ErrorIs(t, err, errs.ErrOutOfBounds, "legacy bounds never reach the last element")

	got, err := v.Slice(0, 2)
	require.NoError(t, err)
	require.Equal(t, split(elems(1, 2)), got)
}

// TestVector_SegmentEquivalence runs identical random operation sequences against a
// segmented vector, a single-segment vector and a slice model.
func TestVector_SegmentEquivalence(t *testing.T) {
	const maxLength = 37

	r := rand.New(rand.NewPCG(42, 7))
	segmented := newTestVector(t, maxLength, 4, 12)
	single := newTestVector(t, maxLength, 4, section.DefaultMaxSegmentBytes)
	var model [][]byte

	for step := range 2000 {
		switch r.IntN(4) {
		case 0, 1:
			k := r.IntN(5)
			data := make([]byte, k*4)
			for i := range data {
				data[i] = byte(r.IntN(256))
			}
			errA := segmented.Push(data)
			errB := single.Push(data)
			require.Equal(t, errA == nil, errB == nil, "step %d", step)
			if len(model)+k <= maxLength {
				require.NoError(t, errA)
				model = append(model, split(data)...)
			} else {
				require.ErrorIs(t, errA, errs.ErrCapacity)
			}
		case 2:
			n := uint64(r.IntN(4))
			a, errA := segmented.Pop(n)
			b, errB := single.Pop(n)
			require.Equal(t, errA == nil, errB == nil, "step %d", step)
			if n <= uint64(len(model)) {
				want := model[len(model)-int(n):]
				require.Equal(t, len(want), len(a))
				for i := range want {
					require.Equal(t, want[i], a[i])
				}
				require.Equal(t, a, b)
				model = model[:len(model)-int(n)]
			}
		case 3:
			if len(model) == 0 {
				continue
			}
			i := uint64(r.IntN(len(model)))
			j := i + uint64(r.IntN(len(model)-int(i)+1))
			a, errA := segmented.RemoveRange(i, j)
			b, errB := single.RemoveRange(i, j)
			require.NoError(t, errA)
			require.NoError(t, errB)
			require.Equal(t, a, b)
			model = append(model[:i:i], model[j:]...)
		}

		require.Equal(t, uint64(len(model)), segmented.Len())
		require.Equal(t, uint64(len(model)), single.Len())
	}

	a, err := segmented.Slice(0, segmented.Len())
	require.NoError(t, err)
	b, err := single.Slice(0, single.Len())
	require.NoError(t, err)
	require.Equal(t, a, b)
	for i := range model {
		require.Equal(t, model[i], a[i])
	}
}
