package snapshot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/segcoll/blobstore"
	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
	"github.com/arloliu/segcoll/instruction"
	"github.com/arloliu/segcoll/processor"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
)

func process(t *testing.T, p *processor.Processor, rec *processor.Record, op format.DequeOp, in instruction.Instruction) processor.Result {
	t.Helper()

	in.Kind = format.KindDeque
	in.Op = uint8(op)
	data, err := instruction.Encode(in)
	require.NoError(t, err)

	res, err := p.Process(context.Background(), rec, data)
	require.NoError(t, err)

	return res
}

// newDeque returns a deque of 4 two-byte elements spread over two segments, holding {1,0} {2,0}.
func newDeque(t *testing.T) (*processor.Processor, *processor.Record, *segment.Store) {
	t.Helper()

	p, err := processor.New(processor.WithMaxSegmentBytes(4))
	require.NoError(t, err)

	rec := &processor.Record{Kind: format.KindDeque}
	process(t, p, rec, format.DequeInitialize, instruction.Instruction{MaxLength: 4, ElementSize: 2})
	process(t, p, rec, format.DequePushBack, instruction.Instruction{Data: []byte{1, 0, 2, 0}})

	store, err := p.Store(rec)
	require.NoError(t, err)
	require.Equal(t, 2, store.NumSegments())

	return p, rec, store
}

func TestSnapshotter_SaveLoadRestore(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			ctx := context.Background()
			blobs := blobstore.NewMemoryStore()
			snap, err := New(blobs, WithCompression(ct), WithConcurrency(2))
			require.NoError(t, err)

			p, rec, store := newDeque(t)

			res, err := snap.Save(ctx, "queue", rec.Kind, rec.Meta, store)
			require.NoError(t, err)
			require.Equal(t, uint64(1), res.Version)
			require.Equal(t, 2, res.Written)
			require.Zero(t, res.Reused)
			require.Equal(t, ct, res.Stats.Algorithm)
			require.Equal(t, int64(8), res.Stats.OriginalSize)
			require.True(t, store.Dirty().IsEmpty())

			// only the second segment changes
			process(t, p, rec, format.DequePushBack, instruction.Instruction{Data: []byte{3, 0}})
			require.Equal(t, []uint32{1}, store.Dirty().ToArray())

			res, err = snap.Save(ctx, "queue", rec.Kind, rec.Meta, store)
			require.NoError(t, err)
			require.Equal(t, uint64(2), res.Version)
			require.Equal(t, 1, res.Written)
			require.Equal(t, 1, res.Reused)

			s, err := snap.Load(ctx, "queue")
			require.NoError(t, err)
			require.Equal(t, "queue", s.Name)
			require.Equal(t, uint64(2), s.Version)
			require.Equal(t, format.KindDeque, s.Kind)
			require.Equal(t, rec.Meta, s.Meta)
			require.Equal(t, store.Segments(), s.Segments)

			restored, err := p.Restore(ctx, s.Kind, s.Meta, s.Segments)
			require.NoError(t, err)
			out := process(t, p, restored, format.DequePopFront, instruction.Instruction{Count: 3})
			require.Equal(t, [][]byte{{1, 0}, {2, 0}, {3, 0}}, out.Elements)

			old, err := snap.LoadVersion(ctx, "queue", 1)
			require.NoError(t, err)
			require.Equal(t, uint64(1), old.Version)
			meta, err := section.ParseDequeMeta(old.Meta)
			require.NoError(t, err)
			require.Equal(t, uint64(2), meta.Length)

			_, err = snap.LoadVersion(ctx, "queue", 3)
			require.ErrorIs(t, err, errs.ErrNotFound)
		})
	}
}

func TestSnapshotter_FullRewriteOnCodecChange(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	_, rec, store := newDeque(t)

	first, err := New(blobs, WithCompression(format.CompressionS2))
	require.NoError(t, err)
	_, err = first.Save(ctx, "queue", rec.Kind, rec.Meta, store)
	require.NoError(t, err)

	second, err := New(blobs, WithCompression(format.CompressionLZ4))
	require.NoError(t, err)
	res, err := second.Save(ctx, "queue", rec.Kind, rec.Meta, store)
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.Version)
	require.Equal(t, 2, res.Written)

	s, err := first.Load(ctx, "queue")
	require.NoError(t, err)
	require.Equal(t, store.Segments(), s.Segments)
}

func TestSnapshotter_LoadMissing(t *testing.T) {
	snap, err := New(blobstore.NewMemoryStore())
	require.NoError(t, err)

	_, err = snap.Load(context.Background(), "nothing")
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = snap.LoadVersion(context.Background(), "nothing", 3)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestSnapshotter_CorruptedSegment(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	snap, err := New(blobs, WithCompression(format.CompressionNone))
	require.NoError(t, err)

	_, rec, store := newDeque(t)
	res, err := snap.Save(ctx, "queue", rec.Kind, rec.Meta, store)
	require.NoError(t, err)

	key := SegmentKey("queue", 0, 1, res.SaveID)
	data, err := blobs.Get(ctx, key)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, blobs.Put(ctx, key, data))

	_, err = snap.Load(ctx, "queue")
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)

	require.NoError(t, blobs.Put(ctx, key, data[:1]))
	_, err = snap.Load(ctx, "queue")
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)
}

func TestSnapshotter_Prune(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	snap, err := New(blobs)
	require.NoError(t, err)

	deleted, err := snap.Prune(ctx, "queue")
	require.NoError(t, err)
	require.Zero(t, deleted)

	p, rec, store := newDeque(t)
	first, err := snap.Save(ctx, "queue", rec.Kind, rec.Meta, store)
	require.NoError(t, err)
	process(t, p, rec, format.DequePushBack, instruction.Instruction{Data: []byte{3, 0}})
	second, err := snap.Save(ctx, "queue", rec.Kind, rec.Meta, store)
	require.NoError(t, err)
	require.NotEqual(t, first.SaveID, second.SaveID)

	require.NoError(t, blobs.Put(ctx, "queue/notes", []byte("keep")))
	require.NoError(t, blobs.Put(ctx, "other/manifest-v1", []byte("keep")))

	deleted, err = snap.Prune(ctx, "queue")
	require.NoError(t, err)
	require.Equal(t, 2, deleted) // manifest-v1 and seg-1-v1

	names, err := blobs.List(ctx, "queue/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		CurrentKey("queue"),
		ManifestKey("queue", 2, second.SaveID),
		"queue/notes",
		SegmentKey("queue", 0, 1, first.SaveID),
		SegmentKey("queue", 1, 2, second.SaveID),
	}, names)

	s, err := snap.Load(ctx, "queue")
	require.NoError(t, err)
	require.Equal(t, store.Segments(), s.Segments)

	_, err = snap.LoadVersion(ctx, "queue", 1)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

// staleCommitter always reports no committed version, as seen by a writer that read
// Latest before a concurrent writer committed.
type staleCommitter struct {
	Committer
}

func (staleCommitter) Latest(context.Context, string) (uint64, xid.ID, error) {
	return 0, xid.NilID(), nil
}

// failingStore fails every Put of a blob whose name contains fail.
type failingStore struct {
	blobstore.Store
	fail string
}

func (f failingStore) Put(ctx context.Context, name string, data []byte) error {
	if strings.Contains(name, f.fail) {
		return errors.New("upload failed")
	}

	return f.Store.Put(ctx, name, data)
}

func TestSnapshotter_ConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	committer := NewBlobCommitter(blobs)

	_, recA, storeA := newDeque(t)
	wantMeta := append([]byte(nil), recA.Meta...)
	wantSegs := storeA.Segments()

	winner, err := New(blobs, WithCommitter(committer))
	require.NoError(t, err)
	_, err = winner.Save(ctx, "queue", recA.Kind, recA.Meta, storeA)
	require.NoError(t, err)

	committed, err := blobs.List(ctx, "queue/")
	require.NoError(t, err)

	// the loser holds different contents: {1,0} {2,0} {9,9}
	pB, recB, storeB := newDeque(t)
	process(t, pB, recB, format.DequePushBack, instruction.Instruction{Data: []byte{9, 9}})
	require.NotEqual(t, wantSegs, storeB.Segments())

	t.Run("Loser keeps the winner's blobs intact", func(t *testing.T) {
		loser, err := New(blobs, WithCommitter(staleCommitter{committer}))
		require.NoError(t, err)
		_, err = loser.Save(ctx, "queue", recB.Kind, recB.Meta, storeB)
		require.ErrorIs(t, err, errs.ErrConcurrentCommit)
		require.False(t, storeB.Dirty().IsEmpty())

		names, err := blobs.List(ctx, "queue/")
		require.NoError(t, err)
		require.Equal(t, committed, names)
	})

	t.Run("Failed upload removes only its own blobs", func(t *testing.T) {
		loser, err := New(failingStore{Store: blobs, fail: "/seg-1-"}, WithCommitter(staleCommitter{committer}))
		require.NoError(t, err)
		storeB.MarkAllDirty()
		_, err = loser.Save(ctx, "queue", recB.Kind, recB.Meta, storeB)
		require.Error(t, err)
		require.NotErrorIs(t, err, errs.ErrConcurrentCommit)

		names, err := blobs.List(ctx, "queue/")
		require.NoError(t, err)
		require.Equal(t, committed, names)
	})

	s, err := winner.Load(ctx, "queue")
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Version)
	require.Equal(t, wantMeta, s.Meta)
	require.Equal(t, wantSegs, s.Segments)

	meta, err := section.ParseDequeMeta(s.Meta)
	require.NoError(t, err)
	require.Equal(t, uint64(2), meta.Length)
}

func TestSnapshotter_IOLimitAndEndian(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	snap, err := New(blobs,
		WithIOLimit(1<<20),
		WithEndian(endian.GetBigEndianEngine()),
		WithCommitter(NewMemoryCommitter()),
	)
	require.NoError(t, err)

	_, rec, store := newDeque(t)
	res, err := snap.Save(ctx, "queue", rec.Kind, rec.Meta, store)
	require.NoError(t, err)

	data, err := blobs.Get(ctx, ManifestKey("queue", 1, res.SaveID))
	require.NoError(t, err)
	h, err := section.ParseManifestHeader(data[:section.ManifestHeaderSize])
	require.NoError(t, err)
	require.False(t, h.Flag.IsLittleEndian())

	s, err := snap.Load(ctx, "queue")
	require.NoError(t, err)
	require.Equal(t, store.Segments(), s.Segments)
}

func TestSnapshotter_InvalidInput(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	blobs := blobstore.NewMemoryStore()
	_, err = New(blobs, WithConcurrency(0))
	require.Error(t, err)
	_, err = New(blobs, WithIOLimit(-1))
	require.Error(t, err)
	_, err = New(blobs, WithCompression(format.CompressionType(0x7)))
	require.Error(t, err)

	snap, err := New(blobs)
	require.NoError(t, err)
	_, rec, store := newDeque(t)
	_, err = snap.Save(context.Background(), "queue", rec.Kind, rec.Meta[:3], store)
	require.ErrorIs(t, err, errs.ErrInvalidMetaSize)

	_, err = snap.Save(context.Background(), "queue/", rec.Kind, rec.Meta, store)
	require.ErrorIs(t, err, errs.ErrInvalidName)
	_, err = snap.LoadVersion(context.Background(), "", 1)
	require.ErrorIs(t, err, errs.ErrInvalidName)
	_, err = snap.Prune(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrInvalidName)
}
