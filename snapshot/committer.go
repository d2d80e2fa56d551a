package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"

	"github.com/arloliu/segcoll/blobstore"
	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/section"
)

// Committer records which snapshot version of a collection is current, and which Save
// wrote it.
//
// Commit must fail with errs.ErrConcurrentCommit when version has already been committed
// for name, so two writers racing on the same version cannot both succeed. The in-process
// committers also reject versions older than the latest one.
type Committer interface {
	// Latest returns the highest committed version and its save id, or 0 and the nil id
	// if none.
	Latest(ctx context.Context, name string) (uint64, xid.ID, error)
	// Commit records version, written by the Save with saveID, as committed.
	Commit(ctx context.Context, name string, version uint64, saveID xid.ID) error
}

type head struct {
	version uint64
	saveID  xid.ID
}

// MemoryCommitter keeps committed versions in memory. It is safe for concurrent use.
type MemoryCommitter struct {
	mu    sync.Mutex
	heads map[string]head
}

var _ Committer = (*MemoryCommitter)(nil)

// NewMemoryCommitter creates an empty MemoryCommitter.
func NewMemoryCommitter() *MemoryCommitter {
	return &MemoryCommitter{heads: make(map[string]head)}
}

// Latest returns the highest committed version.
func (c *MemoryCommitter) Latest(_ context.Context, name string) (uint64, xid.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.heads[name]

	return h.version, h.saveID, nil
}

// Commit records version if it is newer than the current one.
func (c *MemoryCommitter) Commit(_ context.Context, name string, version uint64, saveID xid.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.heads[name].version
	if version <= current {
		return fmt.Errorf("%w: %s version %d, current %d", errs.ErrConcurrentCommit, name, version, current)
	}
	c.heads[name] = head{version: version, saveID: saveID}

	return nil
}

// BlobCommitter stores the current version and save id in a "<name>/CURRENT" blob next
// to the snapshot. The read-check-write is not atomic across processes; use a committer with
// conditional writes, such as the DynamoDB one in blobstore/s3, for concurrent writers.
type BlobCommitter struct {
	blobs blobstore.Store
	mu    sync.Mutex
}

var _ Committer = (*BlobCommitter)(nil)

// NewBlobCommitter creates a committer on blobs.
func NewBlobCommitter(blobs blobstore.Store) *BlobCommitter {
	return &BlobCommitter{blobs: blobs}
}

// CurrentKey returns the name of the pointer blob.
func CurrentKey(name string) string {
	return name + "/CURRENT"
}

// pointer blob: little-endian version followed by the raw save id
const pointerSize = 8 + section.SaveIDSize

// Latest reads the pointer blob.
func (c *BlobCommitter) Latest(ctx context.Context, name string) (uint64, xid.ID, error) {
	data, err := c.blobs.Get(ctx, CurrentKey(name))
	if errors.Is(err, blobstore.ErrNotFound) {
		return 0, xid.NilID(), nil
	}
	if err != nil {
		return 0, xid.NilID(), err
	}
	if len(data) != pointerSize {
		return 0, xid.NilID(), fmt.Errorf("%w: %s pointer is %d bytes", errs.ErrInvalidManifest, name, len(data))
	}

	saveID, err := xid.FromBytes(data[8:])
	if err != nil {
		return 0, xid.NilID(), fmt.Errorf("%w: %s pointer: %w", errs.ErrInvalidManifest, name, err)
	}

	return endian.GetLittleEndianEngine().Uint64(data), saveID, nil
}

// Commit overwrites the pointer blob if version is newer.
func (c *BlobCommitter) Commit(ctx context.Context, name string, version uint64, saveID xid.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, _, err := c.Latest(ctx, name)
	if err != nil {
		return err
	}
	if version <= current {
		return fmt.Errorf("%w: %s version %d, current %d", errs.ErrConcurrentCommit, name, version, current)
	}

	data := endian.GetLittleEndianEngine().AppendUint64(make([]byte, 0, pointerSize), version)

	return c.blobs.Put(ctx, CurrentKey(name), append(data, saveID.Bytes()...))
}
