package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
	"github.com/arloliu/segcoll/heap"
	"github.com/arloliu/segcoll/instruction"
	"github.com/arloliu/segcoll/provision"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
)

// initialize derives the geometry, allocates every segment and commits an empty metadata
// record. Segments allocated before a failure are reclaimed and the record is untouched.
func (p *Processor) initialize(ctx context.Context, rec *Record, in instruction.Instruction) error {
	if rec.Initialized() {
		return fmt.Errorf("%w: %s is already initialized", errs.ErrInvalidInstruction, rec.Kind)
	}

	g, err := section.NewGeometry(in.MaxLength, in.ElementSize, p.maxSegmentBytes)
	if err != nil {
		return err
	}

	segs, err := p.allocate(ctx, g)
	if err != nil {
		return err
	}

	meta, store, err := p.newRecordState(rec.Kind, g, segs, in.Data)
	if err != nil {
		return errors.Join(err, p.provider.Reclaim(ctx, segs...))
	}

	rec.Meta = meta
	rec.Segments = segs
	rec.store = store

	p.logger.WithKind(rec.Kind.String()).LogLifecycle(ctx, "initialized", len(segs), g.MaxBytes)

	return nil
}

// allocate provisions every segment of g, or none. A collection larger than the provider's
// whole budget fails up front instead of waiting forever on its own segments.
func (p *Processor) allocate(ctx context.Context, g section.Geometry) ([]provision.Segment, error) {
	sizes := g.SegmentSizes()

	var total uint64
	for _, size := range sizes {
		total += size
	}
	if err := provision.CheckBudget(p.provider, total); err != nil {
		return nil, err
	}

	segs := make([]provision.Segment, 0, len(sizes))

	for _, size := range sizes {
		seg, err := p.provider.Allocate(ctx, size)
		if err != nil {
			if len(segs) > 0 {
				err = errors.Join(err, p.provider.Reclaim(ctx, segs...))
			}

			return nil, err
		}
		segs = append(segs, seg)
	}

	return segs, nil
}

func (p *Processor) newRecordState(
	kind format.CollectionKind,
	g section.Geometry,
	segs []provision.Segment,
	initial []byte,
) ([]byte, *segment.Store, error) {
	data := make([][]byte, len(segs))
	for i, s := range segs {
		data[i] = s.Data
	}

	store, err := segment.NewStore(g.BytesPerSegment, g.MaxBytes, data...)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case format.KindDeque:
		m := section.NewDequeMeta(g)
		return m.Bytes(p.engine), store, nil
	case format.KindVector:
		m := section.NewVectorMeta(g)
		return m.Bytes(p.engine), store, nil
	case format.KindHeap:
		h, err := heap.New(section.NewHeapMeta(g), store, heap.WithComparator(p.cmp))
		if err != nil {
			return nil, nil, err
		}
		if len(initial) > 0 {
			if err := h.Build(initial); err != nil {
				return nil, nil, err
			}
		}
		m := h.Meta()

		return m.Bytes(p.engine), store, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown collection kind %d", errs.ErrInvalidInstruction, kind)
	}
}

// delete reclaims every segment and clears the record. The record is cleared even when
// the provider reports a reclaim failure, which is returned.
func (p *Processor) delete(ctx context.Context, rec *Record) error {
	if !rec.Initialized() {
		return fmt.Errorf("%w: %s is not initialized", errs.ErrInvalidInstruction, rec.Kind)
	}

	segs := rec.Segments
	err := p.provider.Reclaim(ctx, segs...)

	rec.Meta = nil
	rec.Segments = nil
	rec.store = nil

	p.logger.WithKind(rec.Kind.String()).LogLifecycle(ctx, "deleted", len(segs), 0)

	return err
}

// Restore rebuilds a record from a saved metadata record and segment contents, copying the
// contents into freshly allocated segments.
//
// Parameters:
//   - ctx: bounds segment allocation
//   - kind: collection kind of the saved record
//   - meta: the saved metadata record
//   - contents: saved segment contents, in segment order
//
// Returns:
//   - *Record: the restored record, with every segment marked dirty
//   - error: ErrCorruptMeta, ErrInvalidMetaSize or ErrNotEnoughSegments when the saved
//     state is inconsistent, or a provider error
func (p *Processor) Restore(ctx context.Context, kind format.CollectionKind, meta []byte, contents [][]byte) (*Record, error) {
	rec := &Record{Kind: kind, Meta: meta}

	g, err := p.geometry(rec)
	if err != nil {
		return nil, err
	}

	sizes := g.SegmentSizes()
	if len(contents) != len(sizes) {
		return nil, fmt.Errorf("%w: %d saved segments, layout needs %d", errs.ErrNotEnoughSegments, len(contents), len(sizes))
	}
	for i, size := range sizes {
		if uint64(len(contents[i])) != size {
			return nil, fmt.Errorf("%w: segment %d holds %d bytes, layout needs %d",
				errs.ErrCorruptMeta, i, len(contents[i]), size)
		}
	}

	segs, err := p.allocate(ctx, g)
	if err != nil {
		return nil, err
	}
	for i := range segs {
		copy(segs[i].Data, contents[i])
	}
	rec.Segments = segs

	store, err := p.storeFor(rec, g)
	if err != nil {
		return nil, errors.Join(err, p.provider.Reclaim(ctx, segs...))
	}
	store.MarkAllDirty()

	rec.Meta = append([]byte(nil), meta...)

	p.logger.WithKind(kind.String()).LogLifecycle(ctx, "restored", len(segs), g.MaxBytes)

	return rec, nil
}
