package provision

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/logging"
)

// MemoryProvider allocates segments on the Go heap.
//
// It is safe for concurrent use.
type MemoryProvider struct {
	budget *budget
	logger *logging.Logger
	nextID atomic.Uint64

	mu   sync.Mutex
	live map[uint64]int64
}

var (
	_ Provider = (*MemoryProvider)(nil)
	_ Budgeted = (*MemoryProvider)(nil)
)

// NewMemoryProvider creates a heap-backed provider.
func NewMemoryProvider(opts ...Option) (*MemoryProvider, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &MemoryProvider{
		budget: newBudget(cfg.budget),
		logger: cfg.logger,
		live:   make(map[uint64]int64),
	}, nil
}

// Allocate returns a zeroed segment of byteCount bytes, waiting for budget if necessary.
func (p *MemoryProvider) Allocate(ctx context.Context, byteCount uint64) (Segment, error) {
	n, err := checkSize(byteCount)
	if err != nil {
		return Segment{}, err
	}
	if err := p.budget.acquire(ctx, n); err != nil {
		return Segment{}, err
	}

	return p.register(ctx, n), nil
}

// TryAllocate is Allocate without waiting: it fails with ErrBudgetExceeded when the budget
// is exhausted.
func (p *MemoryProvider) TryAllocate(byteCount uint64) (Segment, error) {
	n, err := checkSize(byteCount)
	if err != nil {
		return Segment{}, err
	}
	if err := p.budget.tryAcquire(n); err != nil {
		return Segment{}, err
	}

	return p.register(context.Background(), n), nil
}

func (p *MemoryProvider) register(ctx context.Context, n int64) Segment {
	seg := Segment{ID: p.nextID.Add(1), Data: make([]byte, n)}

	p.mu.Lock()
	p.live[seg.ID] = n
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "segment allocated", "id", seg.ID, "bytes", n)

	return seg
}

// Reclaim releases segs. Reclaiming an unknown or already reclaimed segment fails with
// ErrReclaimed after the known ones have been released.
func (p *MemoryProvider) Reclaim(ctx context.Context, segs ...Segment) error {
	var firstErr error

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, seg := range segs {
		n, ok := p.live[seg.ID]
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: segment %d", errs.ErrReclaimed, seg.ID)
			}

			continue
		}
		delete(p.live, seg.ID)
		p.budget.release(n)
		p.logger.DebugContext(ctx, "segment reclaimed", "id", seg.ID, "bytes", n)
	}

	return firstErr
}

// Usage returns the bytes held by live segments.
func (p *MemoryProvider) Usage() int64 { return p.budget.used.Load() }

// Budget returns the configured byte cap, or 0 if unlimited.
func (p *MemoryProvider) Budget() int64 { return p.budget.limit }

// Live returns the number of live segments.
func (p *MemoryProvider) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.live)
}

func checkSize(byteCount uint64) (int64, error) {
	if byteCount == 0 || byteCount > uint64(maxSegmentBytes) {
		return 0, fmt.Errorf("%w: segment of %d bytes", errs.ErrInvalidGeometry, byteCount)
	}

	return int64(byteCount), nil
}

// maxSegmentBytes bounds a single allocation.
const maxSegmentBytes = 1 << 40
