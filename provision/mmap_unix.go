//go:build unix

package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/logging"
)

// MmapProvider backs every segment with its own file under a directory, mapped shared and
// read-write, so segment contents survive the process.
//
// A provider opened on a directory that already holds segment files continues numbering
// after the highest one. Existing lists those files, Attach maps one of them again, and
// Detach unmaps a segment while keeping its file. Reclaim removes the file.
//
// It is safe for concurrent use.
type MmapProvider struct {
	dir    string
	budget *budget
	logger *logging.Logger
	nextID atomic.Uint64

	mu   sync.Mutex
	live map[uint64][]byte
}

var (
	_ Provider = (*MmapProvider)(nil)
	_ Budgeted = (*MmapProvider)(nil)
)

// NewMmapProvider creates a file-backed provider rooted at dir, creating it if needed.
func NewMmapProvider(dir string, opts ...Option) (*MmapProvider, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("provision: create segment dir: %w", err)
	}

	p := &MmapProvider{
		dir:    dir,
		budget: newBudget(cfg.budget),
		logger: cfg.logger,
		live:   make(map[uint64][]byte),
	}

	ids, err := p.Existing()
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		p.nextID.Store(ids[len(ids)-1])
	}

	return p, nil
}

// Existing returns the sorted ids of all segment files in the directory, mapped or not.
func (p *MmapProvider) Existing() ([]uint64, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("provision: list segment dir: %w", err)
	}

	var ids []uint64
	for _, e := range entries {
		if id, ok := parseSegmentName(e.Name()); ok && e.Type().IsRegular() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	return ids, nil
}

func parseSegmentName(name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, "seg-")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, ".bin")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}

	return id, true
}

// Allocate creates, sizes and maps a new segment file.
func (p *MmapProvider) Allocate(ctx context.Context, byteCount uint64) (Segment, error) {
	n, err := checkSize(byteCount)
	if err != nil {
		return Segment{}, err
	}
	if err := p.budget.acquire(ctx, n); err != nil {
		return Segment{}, err
	}

	id := p.nextID.Add(1)
	data, err := p.mapFile(p.path(id), n)
	if err != nil {
		p.budget.release(n)
		return Segment{}, err
	}

	p.mu.Lock()
	p.live[id] = data
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "segment mapped", "id", id, "bytes", n, "dir", p.dir)

	return Segment{ID: id, Data: data}, nil
}

func (p *MmapProvider) mapFile(path string, n int64) ([]byte, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("provision: create segment file: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(n); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("provision: size segment file: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("provision: mmap segment: %w", err)
	}

	return data, nil
}

// Attach maps an existing segment file, for example one written before a restart. Its
// size counts against the budget like an allocation.
//
// Returns:
//   - Segment: the segment with its file contents
//   - error: ErrNotFound if there is no such file, or an error if it is already mapped
func (p *MmapProvider) Attach(ctx context.Context, id uint64) (Segment, error) {
	p.mu.Lock()
	_, mapped := p.live[id]
	p.mu.Unlock()
	if mapped {
		return Segment{}, fmt.Errorf("provision: segment %d is already mapped", id)
	}

	path := p.path(id)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return Segment{}, fmt.Errorf("%w: segment %d", errs.ErrNotFound, id)
	}
	if err != nil {
		return Segment{}, fmt.Errorf("provision: open segment file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Segment{}, fmt.Errorf("provision: stat segment file: %w", err)
	}
	n, err := checkSize(uint64(info.Size())) //nolint:gosec // file sizes are non-negative
	if err != nil {
		return Segment{}, err
	}
	if err := p.budget.acquire(ctx, n); err != nil {
		return Segment{}, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		p.budget.release(n)
		return Segment{}, fmt.Errorf("provision: mmap segment: %w", err)
	}

	p.mu.Lock()
	if _, mapped := p.live[id]; mapped {
		p.mu.Unlock()
		_ = unix.Munmap(data)
		p.budget.release(n)

		return Segment{}, fmt.Errorf("provision: segment %d is already mapped", id)
	}
	p.live[id] = data
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "segment attached", "id", id, "bytes", n, "dir", p.dir)

	return Segment{ID: id, Data: data}, nil
}

// Detach flushes and unmaps segs but keeps their files for a later Attach.
func (p *MmapProvider) Detach(ctx context.Context, segs ...Segment) error {
	var errList []error

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, seg := range segs {
		data, ok := p.live[seg.ID]
		if !ok {
			errList = append(errList, fmt.Errorf("%w: segment %d", errs.ErrReclaimed, seg.ID))
			continue
		}
		delete(p.live, seg.ID)

		if err := unix.Msync(data, unix.MS_SYNC); err != nil {
			errList = append(errList, fmt.Errorf("provision: msync segment %d: %w", seg.ID, err))
		}
		if err := unix.Munmap(data); err != nil {
			errList = append(errList, fmt.Errorf("provision: munmap segment %d: %w", seg.ID, err))
		}
		p.budget.release(int64(len(data)))
		p.logger.DebugContext(ctx, "segment detached", "id", seg.ID)
	}

	return errors.Join(errList...)
}

// Sync flushes a segment's dirty pages to its file.
func (p *MmapProvider) Sync(seg Segment) error {
	if len(seg.Data) == 0 {
		return nil
	}

	return unix.Msync(seg.Data, unix.MS_SYNC)
}

// Reclaim unmaps the segments and removes their files. Unknown or already reclaimed
// segments yield ErrReclaimed; other failures are joined.
func (p *MmapProvider) Reclaim(ctx context.Context, segs ...Segment) error {
	var errList []error

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, seg := range segs {
		data, ok := p.live[seg.ID]
		if !ok {
			errList = append(errList, fmt.Errorf("%w: segment %d", errs.ErrReclaimed, seg.ID))
			continue
		}
		delete(p.live, seg.ID)

		if err := unix.Munmap(data); err != nil {
			errList = append(errList, fmt.Errorf("provision: munmap segment %d: %w", seg.ID, err))
		}
		if err := os.Remove(p.path(seg.ID)); err != nil {
			errList = append(errList, fmt.Errorf("provision: remove segment %d: %w", seg.ID, err))
		}
		p.budget.release(int64(len(data)))
		p.logger.DebugContext(ctx, "segment unmapped", "id", seg.ID)
	}

	return errors.Join(errList...)
}

// Usage returns the bytes held by live segments.
func (p *MmapProvider) Usage() int64 { return p.budget.used.Load() }

// Budget returns the configured byte cap, or 0 if unlimited.
func (p *MmapProvider) Budget() int64 { return p.budget.limit }

func (p *MmapProvider) path(id uint64) string {
	return filepath.Join(p.dir, fmt.Sprintf("seg-%08d.bin", id))
}
