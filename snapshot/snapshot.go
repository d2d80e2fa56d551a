// Package snapshot saves collection state to a blob store and loads it back.
//
// A snapshot version consists of one blob per segment and a manifest blob that lists the
// metadata record plus, per segment, the version whose blob holds it, its raw and stored
// size, and an xxHash64 of the raw bytes. Saves are incremental: only segments in the
// store's dirty set are written again, the rest point at the blob of an earlier version.
// A version becomes visible when the Committer accepts it.
//
// Every Save draws a fresh save id and names all blobs it writes after it:
//
//	<name>/seg-<index>-v<version>-<save id>
//	<name>/manifest-v<version>-<save id>
//
// Writers racing on one version therefore never touch each other's blobs. The Committer
// records the winning save id, and each manifest records the save id of the manifest it was
// derived from, so older versions are reached by walking back from the latest one.
//
// # Basic Usage
//
//	snap, _ := snapshot.New(blobstore.NewMemoryStore(), snapshot.WithCompression(format.CompressionS2))
//	store, _ := proc.Store(rec)
//	res, err := snap.Save(ctx, "orders", rec.Kind, rec.Meta, store)
//	...
//	s, err := snap.Load(ctx, "orders")
//	restored, err := proc.Restore(ctx, s.Kind, s.Meta, s.Segments)
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/segcoll/blobstore"
	"github.com/arloliu/segcoll/compress"
	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
	"github.com/arloliu/segcoll/internal/collision"
	"github.com/arloliu/segcoll/internal/hash"
	"github.com/arloliu/segcoll/internal/options"
	"github.com/arloliu/segcoll/internal/pool"
	"github.com/arloliu/segcoll/logging"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
)

// Snapshotter saves and loads collection snapshots on a blob store.
//
// It is safe for concurrent use. Two writers saving the same collection write disjoint
// blobs; the Committer lets only one of them commit, and the loser deletes what it wrote,
// gets ErrConcurrentCommit and must reload before saving again. The segments passed to
// Save must not be mutated until Save returns.
type Snapshotter struct {
	blobs blobstore.Store
	cfg   *config
	names *collision.Tracker
}

// Result describes a completed Save.
type Result struct {
	Version uint64
	// SaveID names the blobs written by this Save.
	SaveID xid.ID
	// Written is the number of segment blobs uploaded; Reused were carried over.
	Written int
	Reused  int
	Stats   compress.CompressionStats
}

// Snapshot is a loaded collection state.
type Snapshot struct {
	Name     string
	Version  uint64
	Kind     format.CollectionKind
	Meta     []byte
	Segments [][]byte
}

// New creates a Snapshotter on blobs.
func New(blobs blobstore.Store, opts ...Option) (*Snapshotter, error) {
	if blobs == nil {
		return nil, errors.New("snapshot: nil blob store")
	}

	cfg := &config{
		compression: format.CompressionZstd,
		concurrency: defaultConcurrency,
		logger:      logging.Noop(),
		engine:      endian.GetLittleEndianEngine(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.codec == nil {
		codec, err := compress.GetCodec(cfg.compression)
		if err != nil {
			return nil, err
		}
		cfg.codec = codec
	}
	if cfg.committer == nil {
		cfg.committer = NewBlobCommitter(blobs)
	}

	return &Snapshotter{blobs: blobs, cfg: cfg, names: collision.NewTracker()}, nil
}

// Save writes a new snapshot version of the named collection.
//
// Parameters:
//   - ctx: bounds all blob transfers
//   - name: collection name, used as the blob name prefix
//   - kind: collection kind
//   - meta: the collection's metadata record
//   - store: the collection's segments; its dirty set selects the segments to write
//
// Returns:
//   - Result: the committed version and transfer counts
//   - error: blob store errors, or ErrConcurrentCommit if another writer committed first
//
// Every segment is written when there is no previous version, or when the segment count
// or codec changed since it. The store's dirty set is reset once the version is committed.
// A Save that fails before its commit deletes the blobs it wrote.
func (s *Snapshotter) Save(ctx context.Context, name string, kind format.CollectionKind, meta []byte, store *segment.Store) (Result, error) {
	if _, err := s.names.Track(name); err != nil {
		return Result{}, err
	}
	if len(meta) != kind.MetaSize() {
		return Result{}, fmt.Errorf("%w: %s record of %d bytes", errs.ErrInvalidMetaSize, kind, len(meta))
	}
	log := s.cfg.logger.WithCollection(name)

	prevVersion, prevID, err := s.cfg.committer.Latest(ctx, name)
	if err != nil {
		return Result{}, err
	}

	var prev *Manifest
	if prevVersion > 0 {
		m, err := s.readManifest(ctx, name, prevVersion, prevID)
		if err != nil {
			return Result{}, err
		}
		prev = &m
	}

	version := prevVersion + 1
	saveID := xid.New()
	n := store.NumSegments()
	full := prev == nil || len(prev.Entries) != n || prev.Compression != s.cfg.compression || prev.Kind != kind
	dirty := store.Dirty()

	res := Result{Version: version, SaveID: saveID, Stats: compress.CompressionStats{Algorithm: s.cfg.compression}}
	entries := make([]section.ManifestEntry, n)
	var (
		written []string
		mu      sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.concurrency)
	for i := range n {
		if !full && !dirty.Contains(uint32(i)) { //nolint:gosec // segment counts are far below 2^32
			entries[i] = prev.Entries[i]
			res.Reused++

			continue
		}

		seg := store.Segment(i)
		key := SegmentKey(name, i, version, saveID)
		res.Written++

		g.Go(func() error {
			packed, err := s.cfg.codec.Compress(seg)
			if err != nil {
				return fmt.Errorf("snapshot: compress segment %d: %w", i, err)
			}
			entries[i] = section.ManifestEntry{
				Version:    version,
				SaveID:     saveID,
				RawSize:    uint64(len(seg)),
				StoredSize: uint64(len(packed)),
				Checksum:   hash.Checksum(seg),
			}

			if err := s.waitIO(gctx, len(packed)); err != nil {
				return err
			}
			if err := s.blobs.Put(gctx, key, packed); err != nil {
				return err
			}

			mu.Lock()
			written = append(written, key)
			res.Stats.Add(len(seg), len(packed))
			mu.Unlock()

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, written)
		log.LogSnapshot(ctx, "save", version, res.Written, err)

		return Result{}, err
	}

	m := Manifest{
		Version:     version,
		SaveID:      saveID,
		PrevSaveID:  prevID,
		Kind:        kind,
		Compression: s.cfg.compression,
		Meta:        meta,
		Entries:     entries,
	}
	manifestKey := ManifestKey(name, version, saveID)
	if err := s.putManifest(ctx, name, manifestKey, &m); err != nil {
		s.discard(ctx, written)
		log.LogSnapshot(ctx, "save", version, res.Written, err)

		return Result{}, err
	}

	if err := s.cfg.committer.Commit(ctx, name, version, saveID); err != nil {
		// other commit errors leave the outcome unknown; Prune collects the blobs if lost
		if errors.Is(err, errs.ErrConcurrentCommit) {
			s.discard(ctx, append(written, manifestKey))
		}
		log.LogSnapshot(ctx, "save", version, res.Written, err)

		return Result{}, err
	}

	store.ResetDirty()
	log.LogSnapshot(ctx, "save", version, res.Written, nil)

	return res, nil
}

func (s *Snapshotter) putManifest(ctx context.Context, name, key string, m *Manifest) error {
	buf := pool.GetSnapshotBuffer()
	defer pool.PutSnapshotBuffer(buf)

	buf.B = m.AppendTo(buf.B, name, s.cfg.engine)

	return s.blobs.Put(ctx, key, buf.B)
}

// discard removes blobs written by a Save that did not commit. Only that Save's own blobs
// are passed in. Failures only leave garbage for Prune, so they are ignored.
func (s *Snapshotter) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		_ = s.blobs.Delete(context.WithoutCancel(ctx), key)
	}
}

func (s *Snapshotter) waitIO(ctx context.Context, n int) error {
	l := s.cfg.limiter
	if l == nil {
		return nil
	}

	for n > 0 {
		chunk := min(n, l.Burst())
		if err := l.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}

	return nil
}

func (s *Snapshotter) readManifest(ctx context.Context, name string, version uint64, saveID xid.ID) (Manifest, error) {
	data, err := s.blobs.Get(ctx, ManifestKey(name, version, saveID))
	if err != nil {
		return Manifest{}, err
	}

	m, err := ParseManifest(name, data)
	if err != nil {
		return Manifest{}, err
	}
	if m.Version != version || m.SaveID != saveID {
		return Manifest{}, fmt.Errorf("%w: manifest v%d-%s holds v%d-%s",
			errs.ErrInvalidManifest, version, saveID, m.Version, m.SaveID)
	}

	return m, nil
}

// Latest returns the latest committed version of a collection, or 0 if none.
func (s *Snapshotter) Latest(ctx context.Context, name string) (uint64, error) {
	version, _, err := s.cfg.committer.Latest(ctx, name)
	return version, err
}

// Load reads the latest committed version of a collection.
//
// Returns:
//   - Snapshot: the collection's kind, metadata record and segment contents
//   - error: ErrNotFound if nothing was committed, ErrChecksumMismatch for a corrupted
//     segment, or blob store errors
func (s *Snapshotter) Load(ctx context.Context, name string) (Snapshot, error) {
	if _, err := s.names.Track(name); err != nil {
		return Snapshot{}, err
	}

	version, saveID, err := s.cfg.committer.Latest(ctx, name)
	if err != nil {
		return Snapshot{}, err
	}
	if version == 0 {
		return Snapshot{}, fmt.Errorf("%w: no snapshot of %s", errs.ErrNotFound, name)
	}

	log := s.cfg.logger.WithCollection(name)
	m, err := s.readManifest(ctx, name, version, saveID)
	if err != nil {
		log.LogSnapshot(ctx, "load", version, 0, err)
		return Snapshot{}, err
	}

	return s.load(ctx, log, name, m)
}

// LoadVersion reads a specific committed version of a collection. The version is found by
// following the chain of manifests back from the latest one, so versions removed by Prune
// are no longer loadable.
func (s *Snapshotter) LoadVersion(ctx context.Context, name string, version uint64) (Snapshot, error) {
	if _, err := s.names.Track(name); err != nil {
		return Snapshot{}, err
	}

	latest, saveID, err := s.cfg.committer.Latest(ctx, name)
	if err != nil {
		return Snapshot{}, err
	}
	if version == 0 || version > latest {
		return Snapshot{}, fmt.Errorf("%w: %s has no version %d", errs.ErrNotFound, name, version)
	}

	log := s.cfg.logger.WithCollection(name)
	m, err := s.readManifest(ctx, name, latest, saveID)
	for err == nil && m.Version > version {
		m, err = s.readManifest(ctx, name, m.Version-1, m.PrevSaveID)
	}
	if err != nil {
		log.LogSnapshot(ctx, "load", version, 0, err)
		return Snapshot{}, err
	}

	return s.load(ctx, log, name, m)
}

func (s *Snapshotter) load(ctx context.Context, log *logging.Logger, name string, m Manifest) (Snapshot, error) {
	codec, err := compress.GetCodec(m.Compression)
	if err != nil {
		return Snapshot{}, err
	}

	segs := make([][]byte, len(m.Entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.concurrency)
	for i, e := range m.Entries {
		g.Go(func() error {
			raw, err := s.fetchSegment(gctx, codec, name, i, e)
			if err != nil {
				return err
			}
			segs[i] = raw

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.LogSnapshot(ctx, "load", m.Version, len(m.Entries), err)
		return Snapshot{}, err
	}

	log.LogSnapshot(ctx, "load", m.Version, len(m.Entries), nil)

	return Snapshot{Name: name, Version: m.Version, Kind: m.Kind, Meta: m.Meta, Segments: segs}, nil
}

func (s *Snapshotter) fetchSegment(ctx context.Context, codec compress.Codec, name string, i int, e section.ManifestEntry) ([]byte, error) {
	packed, err := s.blobs.Get(ctx, entryKey(name, i, e))
	if err != nil {
		return nil, err
	}
	if uint64(len(packed)) != e.StoredSize {
		return nil, fmt.Errorf("%w: segment %d stored as %d bytes, manifest says %d",
			errs.ErrChecksumMismatch, i, len(packed), e.StoredSize)
	}
	if err := s.waitIO(ctx, len(packed)); err != nil {
		return nil, err
	}

	raw, err := compress.DecompressSized(codec, packed, int(e.RawSize)) //nolint:gosec // segment sizes fit in int
	if err != nil {
		return nil, fmt.Errorf("%w: segment %d: %w", errs.ErrChecksumMismatch, i, err)
	}
	if hash.Checksum(raw) != e.Checksum {
		return nil, fmt.Errorf("%w: segment %d", errs.ErrChecksumMismatch, i)
	}

	return raw, nil
}

// Prune deletes every blob of the named collection that the latest committed version does
// not reference: older manifests, superseded segment blobs and blobs of Saves that never
// committed.
//
// Returns the number of deleted blobs.
func (s *Snapshotter) Prune(ctx context.Context, name string) (int, error) {
	if _, err := s.names.Track(name); err != nil {
		return 0, err
	}

	version, saveID, err := s.cfg.committer.Latest(ctx, name)
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, nil
	}

	m, err := s.readManifest(ctx, name, version, saveID)
	if err != nil {
		return 0, err
	}

	keep := map[string]struct{}{
		ManifestKey(name, version, saveID): {},
		CurrentKey(name):                   {},
	}
	for i, e := range m.Entries {
		keep[entryKey(name, i, e)] = struct{}{}
	}

	names, err := s.blobs.List(ctx, name+"/")
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, blob := range names {
		if _, ok := keep[blob]; ok {
			continue
		}
		// only touch blobs written by this package
		rest := strings.TrimPrefix(blob, name+"/")
		if !strings.HasPrefix(rest, "seg-") && !strings.HasPrefix(rest, "manifest-v") {
			continue
		}
		if err := s.blobs.Delete(ctx, blob); err != nil {
			return deleted, err
		}
		deleted++
	}

	s.cfg.logger.WithCollection(name).InfoContext(ctx, "snapshot prune completed", "version", version, "deleted", deleted)

	return deleted, nil
}
