package format

type (
	CollectionKind  uint8
	CompressionType uint8

	DequeOp  uint8
	HeapOp   uint8
	VectorOp uint8
)

const (
	KindDeque  CollectionKind = 0x1 // KindDeque is the circular double-ended queue.
	KindHeap   CollectionKind = 0x2 // KindHeap is the binary min-heap.
	KindVector CollectionKind = 0x3 // KindVector is the linear append vector.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// Deque instruction tags.
const (
	DequeInitialize DequeOp = iota
	DequePushFront
	DequePushBack
	DequePopFront
	DequePopBack
	DequeGet
	DequeRemove
	DequeDelete
)

// Heap instruction tags.
const (
	HeapInitialize HeapOp = iota
	HeapPush
	HeapPop
	HeapPeek
	HeapDelete
)

// Vector instruction tags.
const (
	VectorInitialize VectorOp = iota
	VectorPush
	VectorPop
	VectorSlice
	VectorRemove
	VectorDelete
)

func (k CollectionKind) String() string {
	switch k {
	case KindDeque:
		return "Deque"
	case KindHeap:
		return "Heap"
	case KindVector:
		return "Vector"
	default:
		return "Unknown"
	}
}

// MetaSize returns the byte length of the kind's metadata record, or 0 for unknown kinds.
func (k CollectionKind) MetaSize() int {
	switch k {
	case KindDeque:
		return 56
	case KindHeap:
		return 48
	case KindVector:
		return 40
	default:
		return 0
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

func (op DequeOp) String() string {
	switch op {
	case DequeInitialize:
		return "Initialize"
	case DequePushFront:
		return "PushFront"
	case DequePushBack:
		return "PushBack"
	case DequePopFront:
		return "PopFront"
	case DequePopBack:
		return "PopBack"
	case DequeGet:
		return "Get"
	case DequeRemove:
		return "Remove"
	case DequeDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

func (op HeapOp) String() string {
	switch op {
	case HeapInitialize:
		return "Initialize"
	case HeapPush:
		return "Push"
	case HeapPop:
		return "Pop"
	case HeapPeek:
		return "Peek"
	case HeapDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

func (op VectorOp) String() string {
	switch op {
	case VectorInitialize:
		return "Initialize"
	case VectorPush:
		return "Push"
	case VectorPop:
		return "Pop"
	case VectorSlice:
		return "Slice"
	case VectorRemove:
		return "Remove"
	case VectorDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}
