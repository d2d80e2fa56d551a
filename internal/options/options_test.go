package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type engineConfig struct {
	segmentBytes uint64
	legacy       bool
	calls        []string
}

var errZeroSegment = errors.New("segment size must be positive")

func withSegmentBytes(n uint64) Option[*engineConfig] {
	return New(func(c *engineConfig) error {
		if n == 0 {
			return errZeroSegment
		}
		c.segmentBytes = n
		c.calls = append(c.calls, "segmentBytes")

		return nil
	})
}

func withLegacy() Option[*engineConfig] {
	return NoError(func(c *engineConfig) {
		c.legacy = true
		c.calls = append(c.calls, "legacy")
	})
}

func TestApply(t *testing.T) {
	t.Run("Applies in order", func(t *testing.T) {
		c := &engineConfig{}

		err := Apply(c, withLegacy(), withSegmentBytes(64))

		require.NoError(t, err)
		require.True(t, c.legacy)
		require.Equal(t, uint64(64), c.segmentBytes)
		require.Equal(t, []string{"legacy", "segmentBytes"}, c.calls)
	})

	t.Run("Stops at first error", func(t *testing.T) {
		c := &engineConfig{}

		err := Apply(c, withSegmentBytes(0), withLegacy())

		require.ErrorIs(t, err, errZeroSegment)
		require.False(t, c.legacy)
	})

	t.Run("Skips nil options", func(t *testing.T) {
		c := &engineConfig{}

		require.NoError(t, Apply(c, nil, withLegacy()))
		require.True(t, c.legacy)
	})

	t.Run("No options", func(t *testing.T) {
		c := &engineConfig{}

		require.NoError(t, Apply[*engineConfig](c))
		require.Empty(t, c.calls)
	})
}
