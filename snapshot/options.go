package snapshot

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/arloliu/segcoll/compress"
	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/format"
	"github.com/arloliu/segcoll/internal/options"
	"github.com/arloliu/segcoll/logging"
)

const defaultConcurrency = 4

type config struct {
	compression format.CompressionType
	codec       compress.Codec
	concurrency int
	limiter     *rate.Limiter
	committer   Committer
	logger      *logging.Logger
	engine      endian.EndianEngine
}

// Option configures a Snapshotter.
type Option = options.Option[*config]

// WithCompression selects the codec applied to segment blobs. Default: Zstd.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(c *config) error {
		codec, err := compress.GetCodec(ct)
		if err != nil {
			return err
		}
		c.compression = ct
		c.codec = codec

		return nil
	})
}

// WithConcurrency bounds the number of segment blobs transferred at once. Default: 4.
func WithConcurrency(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("snapshot: concurrency must be positive, got %d", n)
		}
		c.concurrency = n

		return nil
	})
}

// WithIOLimit caps blob transfer throughput in bytes per second, counting stored
// (compressed) bytes. Default: unlimited.
func WithIOLimit(bytesPerSecond int) Option {
	return options.New(func(c *config) error {
		if bytesPerSecond <= 0 {
			return fmt.Errorf("snapshot: io limit must be positive, got %d", bytesPerSecond)
		}
		c.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)

		return nil
	})
}

// WithCommitter sets where committed versions are recorded. Default: a BlobCommitter on
// the snapshot's own blob store.
func WithCommitter(committer Committer) Option {
	return options.NoError(func(c *config) {
		c.committer = committer
	})
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return options.NoError(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithEndian sets the byte order of manifests written by Save. Load accepts both.
func WithEndian(engine endian.EndianEngine) Option {
	return options.NoError(func(c *config) {
		if engine != nil {
			c.engine = engine
		}
	})
}
