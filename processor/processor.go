// Package processor dispatches encoded requests against stored collections.
//
// A Record is the host-side state of one collection: its kind, its metadata record and its
// segments. Process decodes one request, runs Initialize or Delete glue or the matching
// engine operation, and writes the metadata record back only when the operation succeeds.
// Engines validate every request before touching a byte, so a failed call leaves the
// Record exactly as it was.
//
// # Basic Usage
//
//	p, _ := processor.New(processor.WithMaxSegmentBytes(4096))
//	rec := &processor.Record{Kind: format.KindDeque}
//	req, _ := instruction.EncodeDeque(format.DequeInitialize, instruction.Instruction{MaxLength: 100, ElementSize: 8})
//	_, _ = p.Process(ctx, rec, req)
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
	"github.com/arloliu/segcoll/heap"
	"github.com/arloliu/segcoll/instruction"
	"github.com/arloliu/segcoll/internal/options"
	"github.com/arloliu/segcoll/logging"
	"github.com/arloliu/segcoll/provision"
	"github.com/arloliu/segcoll/section"
	"github.com/arloliu/segcoll/segment"
)

// Record is the stored state of one collection.
//
// Meta and Segments are owned by the Processor between Initialize and Delete; callers must
// not replace them, since the segment store (and its dirty set) is cached on the Record.
type Record struct {
	Kind     format.CollectionKind
	Meta     []byte
	Segments []provision.Segment

	store *segment.Store
}

// Initialized reports whether the record holds a collection.
func (r *Record) Initialized() bool {
	return len(r.Meta) != 0
}

// Result carries the elements an operation returned: popped, read, removed or peeked
// values, each a copy of exactly one element.
type Result struct {
	Elements [][]byte
}

// Processor executes requests against Records.
//
// A Processor is safe for concurrent use on distinct Records; a single Record must not be
// processed concurrently.
type Processor struct {
	maxSegmentBytes uint64
	provider        provision.Provider
	logger          *logging.Logger
	cmp             heap.Comparator
	engine          endian.EndianEngine
	legacyBounds    bool
}

// Option configures a Processor.
type Option = options.Option[*Processor]

// WithMaxSegmentBytes sets the largest segment the host can allocate.
func WithMaxSegmentBytes(n uint64) Option {
	return options.New(func(p *Processor) error {
		if n == 0 {
			return fmt.Errorf("%w: max segment bytes must be positive", errs.ErrInvalidGeometry)
		}
		p.maxSegmentBytes = n

		return nil
	})
}

// WithProvider sets the segment provider used by Initialize, Delete and Restore.
func WithProvider(provider provision.Provider) Option {
	return options.New(func(p *Processor) error {
		if provider == nil {
			return errors.New("processor: nil provider")
		}
		p.provider = provider

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return options.NoError(func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	})
}

// WithComparator sets the heap element ordering.
func WithComparator(cmp heap.Comparator) Option {
	return options.New(func(p *Processor) error {
		if cmp == nil {
			return errors.New("processor: nil comparator")
		}
		p.cmp = cmp

		return nil
	})
}

// WithEndian sets the byte order of metadata records. Stored state from existing hosts is
// little-endian, which is the default.
func WithEndian(engine endian.EndianEngine) Option {
	return options.NoError(func(p *Processor) {
		if engine != nil {
			p.engine = engine
		}
	})
}

// WithLegacyBounds applies the legacy range check to deque and vector Get, Slice and Remove.
func WithLegacyBounds() Option {
	return options.NoError(func(p *Processor) {
		p.legacyBounds = true
	})
}

// New creates a Processor. Without WithProvider it allocates segments on the heap.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		maxSegmentBytes: section.DefaultMaxSegmentBytes,
		logger:          logging.Noop(),
		cmp:             heap.CompareUnsignedLE,
		engine:          endian.GetLittleEndianEngine(),
	}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	if p.provider == nil {
		mem, err := provision.NewMemoryProvider(provision.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.provider = mem
	}

	return p, nil
}

// Process decodes data as a request for rec.Kind and executes it.
//
// Parameters:
//   - ctx: bounds segment allocation and reclamation; engine operations never block
//   - rec: the collection's stored state, updated in place on success
//   - data: encoded request (tag byte + payload)
//
// Returns:
//   - Result: elements returned by the operation, if any
//   - error: an *OpError wrapping one of the errs sentinels
func (p *Processor) Process(ctx context.Context, rec *Record, data []byte) (Result, error) {
	in, err := instruction.Decode(rec.Kind, data)
	if err != nil {
		return Result{}, p.fail(ctx, rec.Kind, "Decode", err)
	}

	op := in.OpName()

	var res Result
	switch {
	case in.Op == 0:
		err = p.initialize(ctx, rec, in)
	case isDelete(in):
		err = p.delete(ctx, rec)
	default:
		res, err = p.dispatch(rec, in)
	}
	if err != nil {
		return Result{}, p.fail(ctx, rec.Kind, op, err)
	}

	p.logger.WithKind(rec.Kind.String()).LogOp(ctx, op, nil, "elements", len(res.Elements))

	return res, nil
}

func (p *Processor) fail(ctx context.Context, kind format.CollectionKind, op string, err error) error {
	p.logger.WithKind(kind.String()).LogOp(ctx, op, err)
	return &OpError{Kind: kind, Op: op, Err: err}
}

func isDelete(in instruction.Instruction) bool {
	switch in.Kind {
	case format.KindDeque:
		return in.DequeOp() == format.DequeDelete
	case format.KindHeap:
		return in.HeapOp() == format.HeapDelete
	case format.KindVector:
		return in.VectorOp() == format.VectorDelete
	default:
		return false
	}
}

// Store returns the segment store of an initialized record. The store is cached on the
// record, so its dirty set accumulates across calls until a snapshot resets it.
func (p *Processor) Store(rec *Record) (*segment.Store, error) {
	g, err := p.geometry(rec)
	if err != nil {
		return nil, err
	}

	return p.storeFor(rec, g)
}

func (p *Processor) storeFor(rec *Record, g section.Geometry) (*segment.Store, error) {
	if rec.store != nil {
		return rec.store, nil
	}

	segs := make([][]byte, len(rec.Segments))
	for i, s := range rec.Segments {
		segs[i] = s.Data
	}

	store, err := segment.NewStore(g.BytesPerSegment, g.MaxBytes, segs...)
	if err != nil {
		return nil, err
	}
	rec.store = store

	return store, nil
}

func (p *Processor) geometry(rec *Record) (section.Geometry, error) {
	if !rec.Initialized() {
		return section.Geometry{}, fmt.Errorf("%w: %s record is not initialized", errs.ErrInvalidMetaSize, rec.Kind)
	}

	switch rec.Kind {
	case format.KindDeque:
		var m section.DequeMeta
		if err := m.Parse(p.engine, rec.Meta); err != nil {
			return section.Geometry{}, err
		}

		return m.Geometry(), nil
	case format.KindHeap:
		var m section.HeapMeta
		if err := m.Parse(p.engine, rec.Meta); err != nil {
			return section.Geometry{}, err
		}

		return m.Geometry(), nil
	case format.KindVector:
		var m section.VectorMeta
		if err := m.Parse(p.engine, rec.Meta); err != nil {
			return section.Geometry{}, err
		}

		return m.Geometry(), nil
	default:
		return section.Geometry{}, fmt.Errorf("%w: unknown collection kind %d", errs.ErrCorruptMeta, rec.Kind)
	}
}
