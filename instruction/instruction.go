// Package instruction encodes and decodes collection requests.
//
// A request is one tag byte selecting the operation followed by a little-endian payload
// whose shape depends on the operation:
//
//	Initialize      max_length u64, element_size u64 [, heap initial elements...]
//	                deque and vector ignore any bytes after element_size
//	Push*           raw element bytes, a whole number of elements
//	Pop (count)     count u64 (deque and vector)
//	Get/Slice       start u64, end u64
//	Remove          start u64, end u64
//	Delete, heap Pop and Peek carry no payload
//
// The tag values per collection kind are the format.DequeOp, format.HeapOp and
// format.VectorOp constants.
//
// Legacy clients append account bump seeds to Initialize. Deque and vector requests decode
// unchanged; a heap reads them as initial elements, so those clients must drop them.
package instruction

import (
	"fmt"

	"github.com/arloliu/segcoll/endian"
	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/format"
)

// Instruction is a decoded request. Only the fields used by Op are set.
type Instruction struct {
	// Kind is the collection kind the request was decoded for.
	Kind format.CollectionKind
	// Op is the raw tag; see DequeOp, HeapOp and VectorOp for the typed value.
	Op uint8

	// MaxLength and ElementSize are the Initialize parameters.
	MaxLength   uint64
	ElementSize uint64

	// Data is the push payload, or the heap's initial elements on Initialize.
	// It aliases the decoded buffer.
	Data []byte

	// Count is the number of elements to pop.
	Count uint64

	// Start and End bound a Get, Slice or Remove range.
	Start uint64
	End   uint64
}

// DequeOp returns the typed deque operation.
func (in Instruction) DequeOp() format.DequeOp { return format.DequeOp(in.Op) }

// HeapOp returns the typed heap operation.
func (in Instruction) HeapOp() format.HeapOp { return format.HeapOp(in.Op) }

// VectorOp returns the typed vector operation.
func (in Instruction) VectorOp() format.VectorOp { return format.VectorOp(in.Op) }

// OpName returns the operation name for logging.
func (in Instruction) OpName() string {
	switch in.Kind {
	case format.KindDeque:
		return in.DequeOp().String()
	case format.KindHeap:
		return in.HeapOp().String()
	case format.KindVector:
		return in.VectorOp().String()
	default:
		return fmt.Sprintf("op(%d)", in.Op)
	}
}

// payload shapes
type shape uint8

const (
	shapeNone shape = iota
	shapeInit
	shapeInitWithData
	shapeBytes
	shapeCount
	shapeRange
)

func dequeShape(op format.DequeOp) (shape, bool) {
	switch op {
	case format.DequeInitialize:
		return shapeInit, true
	case format.DequePushFront, format.DequePushBack:
		return shapeBytes, true
	case format.DequePopFront, format.DequePopBack:
		return shapeCount, true
	case format.DequeGet, format.DequeRemove:
		return shapeRange, true
	case format.DequeDelete:
		return shapeNone, true
	default:
		return 0, false
	}
}

func heapShape(op format.HeapOp) (shape, bool) {
	switch op {
	case format.HeapInitialize:
		return shapeInitWithData, true
	case format.HeapPush:
		return shapeBytes, true
	case format.HeapPop, format.HeapPeek, format.HeapDelete:
		return shapeNone, true
	default:
		return 0, false
	}
}

func vectorShape(op format.VectorOp) (shape, bool) {
	switch op {
	case format.VectorInitialize:
		return shapeInit, true
	case format.VectorPush:
		return shapeBytes, true
	case format.VectorPop:
		return shapeCount, true
	case format.VectorSlice, format.VectorRemove:
		return shapeRange, true
	case format.VectorDelete:
		return shapeNone, true
	default:
		return 0, false
	}
}

func shapeOf(kind format.CollectionKind, op uint8) (shape, bool) {
	switch kind {
	case format.KindDeque:
		return dequeShape(format.DequeOp(op))
	case format.KindHeap:
		return heapShape(format.HeapOp(op))
	case format.KindVector:
		return vectorShape(format.VectorOp(op))
	default:
		return 0, false
	}
}

// Decode decodes a request for a collection of the given kind.
//
// Returns ErrInvalidInstruction for an empty buffer, an unknown tag, or a payload of the
// wrong length.
func Decode(kind format.CollectionKind, data []byte) (Instruction, error) {
	if len(data) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty %s request", errs.ErrInvalidInstruction, kind)
	}

	tag, rest := data[0], data[1:]
	sh, ok := shapeOf(kind, tag)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: unknown %s tag %d", errs.ErrInvalidInstruction, kind, tag)
	}

	in := Instruction{Kind: kind, Op: tag}
	engine := endian.GetLittleEndianEngine()

	var want int
	switch sh {
	case shapeNone:
		want = 0
	case shapeCount:
		want = 8
	case shapeRange:
		want = 16
	case shapeInit:
		// trailing bytes, such as legacy bump seeds, are ignored
		if len(rest) < 16 {
			return Instruction{}, payloadError(in, len(rest), 16)
		}
		want = len(rest)
	case shapeInitWithData:
		if len(rest) < 16 {
			return Instruction{}, payloadError(in, len(rest), 16)
		}
		want = len(rest)
	case shapeBytes:
		want = len(rest)
	}
	if len(rest) != want {
		return Instruction{}, payloadError(in, len(rest), want)
	}

	switch sh {
	case shapeInit:
		in.MaxLength = engine.Uint64(rest[0:8])
		in.ElementSize = engine.Uint64(rest[8:16])
	case shapeInitWithData:
		in.MaxLength = engine.Uint64(rest[0:8])
		in.ElementSize = engine.Uint64(rest[8:16])
		if len(rest) > 16 {
			in.Data = rest[16:]
		}
	case shapeBytes:
		in.Data = rest
	case shapeCount:
		in.Count = engine.Uint64(rest)
	case shapeRange:
		in.Start = engine.Uint64(rest[0:8])
		in.End = engine.Uint64(rest[8:16])
	case shapeNone:
	}

	return in, nil
}

// DecodeDeque decodes a deque request.
func DecodeDeque(data []byte) (Instruction, error) { return Decode(format.KindDeque, data) }

// DecodeHeap decodes a heap request.
func DecodeHeap(data []byte) (Instruction, error) { return Decode(format.KindHeap, data) }

// DecodeVector decodes a vector request.
func DecodeVector(data []byte) (Instruction, error) { return Decode(format.KindVector, data) }

func payloadError(in Instruction, got, want int) error {
	return fmt.Errorf("%w: %s %s payload is %d bytes, want %d",
		errs.ErrInvalidInstruction, in.Kind, in.OpName(), got, want)
}

// Encode serializes in. It is the inverse of Decode.
func Encode(in Instruction) ([]byte, error) {
	sh, ok := shapeOf(in.Kind, in.Op)
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s tag %d", errs.ErrInvalidInstruction, in.Kind, in.Op)
	}

	engine := endian.GetLittleEndianEngine()
	buf := make([]byte, 1, 17+len(in.Data))
	buf[0] = in.Op

	switch sh {
	case shapeInit:
		buf = engine.AppendUint64(buf, in.MaxLength)
		buf = engine.AppendUint64(buf, in.ElementSize)
	case shapeInitWithData:
		buf = engine.AppendUint64(buf, in.MaxLength)
		buf = engine.AppendUint64(buf, in.ElementSize)
		buf = append(buf, in.Data...)
	case shapeBytes:
		buf = append(buf, in.Data...)
	case shapeCount:
		buf = engine.AppendUint64(buf, in.Count)
	case shapeRange:
		buf = engine.AppendUint64(buf, in.Start)
		buf = engine.AppendUint64(buf, in.End)
	case shapeNone:
	}

	return buf, nil
}

// EncodeDeque serializes a deque request; in.Kind and in.Op are set from op.
func EncodeDeque(op format.DequeOp, in Instruction) ([]byte, error) {
	in.Kind, in.Op = format.KindDeque, uint8(op)
	return Encode(in)
}

// EncodeHeap serializes a heap request; in.Kind and in.Op are set from op.
func EncodeHeap(op format.HeapOp, in Instruction) ([]byte, error) {
	in.Kind, in.Op = format.KindHeap, uint8(op)
	return Encode(in)
}

// EncodeVector serializes a vector request; in.Kind and in.Op are set from op.
func EncodeVector(op format.VectorOp, in Instruction) ([]byte, error) {
	in.Kind, in.Op = format.KindVector, uint8(op)
	return Encode(in)
}
