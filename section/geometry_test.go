package section

import (
	"math"
	"testing"

	"github.com/arloliu/segcoll/errs"
	"github.com/stretchr/testify/require"
)

func TestNewGeometry(t *testing.T) {
	t.Run("Rounds segment down to whole elements", func(t *testing.T) {
		g, err := NewGeometry(5, 4, 10)

		require.NoError(t, err)
		require.Equal(t, uint64(20), g.MaxBytes)
		require.Equal(t, uint64(2), g.ElementsPerSegment)
		require.Equal(t, uint64(8), g.BytesPerSegment)
		require.Equal(t, uint64(3), g.SegmentCount())
		require.Equal(t, []uint64{8, 8, 4}, g.SegmentSizes())
		require.NoError(t, g.Validate())
	})

	t.Run("Single segment", func(t *testing.T) {
		g, err := NewGeometry(100, 8, DefaultMaxSegmentBytes)

		require.NoError(t, err)
		require.Equal(t, uint64(1), g.SegmentCount())
		require.Equal(t, []uint64{800}, g.SegmentSizes())
	})

	t.Run("Exact multiple", func(t *testing.T) {
		g, err := NewGeometry(6, 4, 8)

		require.NoError(t, err)
		require.Equal(t, uint64(3), g.SegmentCount())
		require.Equal(t, []uint64{8, 8, 8}, g.SegmentSizes())
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := []struct {
			name                       string
			maxLength, elemSize, limit uint64
		}{
			{"zero length", 0, 4, 10},
			{"zero element size", 4, 0, 10},
			{"element larger than segment", 4, 11, 10},
			{"overflow", math.MaxUint64, 2, math.MaxUint64},
		}

		for _, c := range cases {
			_, err := NewGeometry(c.maxLength, c.elemSize, c.limit)
			require.ErrorIs(t, err, errs.ErrInvalidGeometry, c.name)
		}
	})
}

func TestGeometry_Validate(t *testing.T) {
	g, err := NewGeometry(10, 3, 9)
	require.NoError(t, err)

	bad := g
	bad.MaxBytes++
	require.ErrorIs(t, bad.Validate(), errs.ErrCorruptMeta)

	bad = g
	bad.BytesPerSegment = 10
	require.ErrorIs(t, bad.Validate(), errs.ErrCorruptMeta)

	bad = g
	bad.ElementsPerSegment = 0
	require.ErrorIs(t, bad.Validate(), errs.ErrCorruptMeta)
}
