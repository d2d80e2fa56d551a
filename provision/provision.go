// Package provision supplies and reclaims the segments that back a collection.
//
// Segment procurement is a host concern; engines only ever see the byte buffers. This
// package provides two providers with the same contract: MemoryProvider hands out heap
// buffers, MmapProvider (unix only) maps one file per segment. Both can enforce a byte
// budget across all live segments.
package provision

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/internal/options"
	"github.com/arloliu/segcoll/logging"
)

// Segment is one allocated segment. Data is exactly the requested size.
type Segment struct {
	ID   uint64
	Data []byte
}

// Allocator provides new segments. It is only called while a collection is initialized.
type Allocator interface {
	Allocate(ctx context.Context, byteCount uint64) (Segment, error)
}

// Reclaimer releases the segments of a deleted collection.
type Reclaimer interface {
	Reclaim(ctx context.Context, segs ...Segment) error
}

// Provider both allocates and reclaims segments.
type Provider interface {
	Allocator
	Reclaimer
}

// Budgeted is implemented by providers that cap the total bytes of live segments. Callers
// allocating several segments at once check the cap first: a request larger than the whole
// budget can never be satisfied, and waiting for it while holding part of it never ends.
type Budgeted interface {
	// Budget returns the byte cap, or 0 if unlimited.
	Budget() int64
}

// CheckBudget fails with ErrBudgetExceeded if p is Budgeted and total bytes exceed its cap.
func CheckBudget(p any, total uint64) error {
	b, ok := p.(Budgeted)
	if !ok {
		return nil
	}
	if limit := b.Budget(); limit > 0 && total > uint64(limit) {
		return fmt.Errorf("%w: %d bytes exceeds budget %d", errs.ErrBudgetExceeded, total, limit)
	}

	return nil
}

type config struct {
	budget int64
	logger *logging.Logger
}

// Option configures a provider.
type Option = options.Option[*config]

// WithBudget caps the total bytes of live segments. Allocate blocks until enough bytes are
// reclaimed; TryAllocate fails with ErrBudgetExceeded instead.
func WithBudget(bytes int64) Option {
	return options.New(func(c *config) error {
		if bytes <= 0 {
			return fmt.Errorf("provision: budget must be positive, got %d", bytes)
		}
		c.budget = bytes

		return nil
	})
}

// WithLogger sets the logger for allocation events.
func WithLogger(l *logging.Logger) Option {
	return options.NoError(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{logger: logging.Noop()}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// budget tracks live bytes, optionally bounded by a weighted semaphore.
type budget struct {
	limit int64
	sem   *semaphore.Weighted // nil if unlimited
	used  atomic.Int64
}

func newBudget(limit int64) *budget {
	b := &budget{limit: limit}
	if limit > 0 {
		b.sem = semaphore.NewWeighted(limit)
	}

	return b
}

func (b *budget) acquire(ctx context.Context, n int64) error {
	if b.sem != nil {
		if n > b.limit {
			return fmt.Errorf("%w: %d bytes exceeds budget %d", errs.ErrBudgetExceeded, n, b.limit)
		}
		if err := b.sem.Acquire(ctx, n); err != nil {
			return err
		}
	}
	b.used.Add(n)

	return nil
}

func (b *budget) tryAcquire(n int64) error {
	if b.sem != nil && !b.sem.TryAcquire(n) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			errs.ErrBudgetExceeded, n, b.used.Load(), b.limit)
	}
	b.used.Add(n)

	return nil
}

func (b *budget) release(n int64) {
	if b.sem != nil {
		b.sem.Release(n)
	}
	b.used.Add(-n)
}
