// Package pool provides pooled byte buffers used by the collection engines and snapshots.
//
// Engines borrow a scratch buffer of one element for swaps and sift steps; snapshots
// borrow larger buffers to assemble manifests before uploading them.
package pool

import (
	"sync"
)

const (
	// ScratchDefaultSize covers the element sizes of typical collections.
	ScratchDefaultSize = 64
	// ScratchMaxThreshold is the largest scratch buffer kept in the pool.
	ScratchMaxThreshold = 1024 * 64 // 64KiB
	// SnapshotBufferDefaultSize is the default size of a snapshot buffer.
	SnapshotBufferDefaultSize = 1024 * 64 // 64KiB
	// SnapshotBufferMaxThreshold is the largest snapshot buffer kept in the pool.
	SnapshotBufferMaxThreshold = 1024 * 1024 * 16 // 16MiB
)

type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// Resize sets the length of the buffer to n, growing the capacity if necessary.
// Existing content up to min(n, Len()) is preserved.
func (bb *ByteBuffer) Resize(n int) []byte {
	if n > cap(bb.B) {
		bb.Grow(n - len(bb.B))
	}
	bb.B = bb.B[:n]

	return bb.B
}

// Grow grows the buffer to ensure it can hold requiredBytes more bytes without reallocating.
//
// Small buffers grow by at least ScratchDefaultSize, larger ones by 25% of their capacity.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := ScratchDefaultSize
	if cap(bb.B) > 4*ScratchDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// Buffers larger than maxThreshold are dropped on Put instead of being retained.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool whose fresh buffers have defaultSize capacity.
// A maxThreshold of 0 keeps buffers of any size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	scratchPool  = NewByteBufferPool(ScratchDefaultSize, ScratchMaxThreshold)
	snapshotPool = NewByteBufferPool(SnapshotBufferDefaultSize, SnapshotBufferMaxThreshold)
)

// GetScratch retrieves a buffer of exactly n bytes for element swaps.
//
// Example:
//
//	scratch := pool.GetScratch(elementSize)
//	defer pool.PutScratch(scratch)
//	store.Swap(i, j, elementSize, scratch.B)
func GetScratch(n int) *ByteBuffer {
	bb := scratchPool.Get()
	bb.Resize(n)

	return bb
}

// PutScratch returns a scratch buffer to the pool.
func PutScratch(bb *ByteBuffer) {
	scratchPool.Put(bb)
}

// GetSnapshotBuffer retrieves an empty buffer for assembling a snapshot manifest.
//
// Example:
//
//	buf := pool.GetSnapshotBuffer()
//	defer pool.PutSnapshotBuffer(buf)
//	buf.B = m.AppendTo(buf.B, name, engine)
func GetSnapshotBuffer() *ByteBuffer {
	return snapshotPool.Get()
}

// PutSnapshotBuffer returns a snapshot buffer to the pool.
func PutSnapshotBuffer(bb *ByteBuffer) {
	snapshotPool.Put(bb)
}
