package processor

import (
	"fmt"

	"github.com/arloliu/segcoll/deque"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
	"github.com/arloliu/segcoll/heap"
	"github.com/arloliu/segcoll/instruction"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/vector"
)

// dispatch runs a non-lifecycle operation. rec.Meta is replaced only when the engine
// call succeeds.
func (p *Processor) dispatch(rec *Record, in instruction.Instruction) (Result, error) {
	switch rec.Kind {
	case format.KindDeque:
		return p.dispatchDeque(rec, in)
	case format.KindHeap:
		return p.dispatchHeap(rec, in)
	case format.KindVector:
		return p.dispatchVector(rec, in)
	default:
		return Result{}, fmt.Errorf("%w: unknown collection kind %d", errs.ErrInvalidInstruction, rec.Kind)
	}
}

func (p *Processor) dispatchDeque(rec *Record, in instruction.Instruction) (Result, error) {
	var meta section.DequeMeta
	if err := meta.Parse(p.engine, rec.Meta); err != nil {
		return Result{}, err
	}
	store, err := p.storeFor(rec, meta.Geometry())
	if err != nil {
		return Result{}, err
	}

	var opts []deque.Option
	if p.legacyBounds {
		opts = append(opts, deque.WithLegacyBounds())
	}
	d, err := deque.New(meta, store, opts...)
	if err != nil {
		return Result{}, err
	}

	var out [][]byte
	switch in.DequeOp() {
	case format.DequePushFront:
		err = d.PushFront(in.Data)
	case format.DequePushBack:
		err = d.PushBack(in.Data)
	case format.DequePopFront:
		out, err = d.PopFront(in.Count)
	case format.DequePopBack:
		out, err = d.PopBack(in.Count)
	case format.DequeGet:
		out, err = d.Slice(in.Start, in.End)
	case format.DequeRemove:
		out, err = d.RemoveRange(in.Start, in.End)
	default:
		err = fmt.Errorf("%w: deque op %s", errs.ErrInvalidInstruction, in.DequeOp())
	}
	if err != nil {
		return Result{}, err
	}

	meta = d.Meta()
	rec.Meta = meta.Bytes(p.engine)

	return Result{Elements: out}, nil
}

func (p *Processor) dispatchHeap(rec *Record, in instruction.Instruction) (Result, error) {
	var meta section.HeapMeta
	if err := meta.Parse(p.engine, rec.Meta); err != nil {
		return Result{}, err
	}
	store, err := p.storeFor(rec, meta.Geometry())
	if err != nil {
		return Result{}, err
	}

	h, err := heap.New(meta, store, heap.WithComparator(p.cmp))
	if err != nil {
		return Result{}, err
	}

	var elem []byte
	switch in.HeapOp() {
	case format.HeapPush:
		err = h.Push(in.Data)
	case format.HeapPop:
		elem, err = h.Pop()
	case format.HeapPeek:
		elem, err = h.Peek()
	default:
		err = fmt.Errorf("%w: heap op %s", errs.ErrInvalidInstruction, in.HeapOp())
	}
	if err != nil {
		return Result{}, err
	}

	meta = h.Meta()
	rec.Meta = meta.Bytes(p.engine)

	if elem == nil {
		return Result{}, nil
	}

	return Result{Elements: [][]byte{elem}}, nil
}

func (p *Processor) dispatchVector(rec *Record, in instruction.Instruction) (Result, error) {
	var meta section.VectorMeta
	if err := meta.Parse(p.engine, rec.Meta); err != nil {
		return Result{}, err
	}
	store, err := p.storeFor(rec, meta.Geometry())
	if err != nil {
		return Result{}, err
	}

	var opts []vector.Option
	if p.legacyBounds {
		opts = append(opts, vector.WithLegacyBounds())
	}
	v, err := vector.New(meta, store, opts...)
	if err != nil {
		return Result{}, err
	}

	var out [][]byte
	switch in.VectorOp() {
	case format.VectorPush:
		err = v.Push(in.Data)
	case format.VectorPop:
		out, err = v.Pop(in.Count)
	case format.VectorSlice:
		out, err = v.Slice(in.Start, in.End)
	case format.VectorRemove:
		out, err = v.RemoveRange(in.Start, in.End)
	default:
		err = fmt.Errorf("%w: vector op %s", errs.ErrInvalidInstruction, in.VectorOp())
	}
	if err != nil {
		return Result{}, err
	}

	meta = v.Meta()
	rec.Meta = meta.Bytes(p.engine)

	return Result{Elements: out}, nil
}
