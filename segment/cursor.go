package segment

// Cursor walks a Store one element at a time, tracking both the absolute byte position and
// the (segment, offset) pair it maps to.
//
// With a non-zero ring size the cursor wraps to position 0 when the absolute position
// reaches the ring size; with a zero ring size it only crosses local segment boundaries.
type Cursor struct {
	store       *Store
	elementSize uint64
	ringBytes   uint64
	abs         uint64
	seg         uint64
	off         uint64
}

// NewCursor creates a cursor positioned at logical byte position p.
//
// Parameters:
//   - store: segment arena to walk
//   - p: starting byte position, a multiple of elementSize
//   - elementSize: step of every Advance
//   - ringBytes: ring size in bytes, or 0 to disable ring wrap
func NewCursor(store *Store, p, elementSize, ringBytes uint64) Cursor {
	seg, off := store.Locate(p)

	return Cursor{
		store:       store,
		elementSize: elementSize,
		ringBytes:   ringBytes,
		abs:         p,
		seg:         seg,
		off:         off,
	}
}

// Position returns the absolute byte position of the cursor.
func (c *Cursor) Position() uint64 { return c.abs }

// Segment returns the index of the segment under the cursor.
func (c *Cursor) Segment() uint64 { return c.seg }

// Offset returns the in-segment byte offset of the cursor.
func (c *Cursor) Offset() uint64 { return c.off }

// Advance moves the cursor forward by one element.
func (c *Cursor) Advance() {
	c.abs += c.elementSize
	c.off += c.elementSize

	if c.ringBytes != 0 && c.abs == c.ringBytes {
		c.abs, c.seg, c.off = 0, 0, 0
		return
	}

	if c.off == c.store.bytesPerSegment {
		c.seg++
		c.off = 0
	}
}

// Element returns the element under the cursor in place.
func (c *Cursor) Element() []byte {
	return c.store.segments[c.seg][c.off : c.off+c.elementSize]
}

// Read copies the element under the cursor into dst and advances.
func (c *Cursor) Read(dst []byte) {
	copy(dst, c.Element())
	c.Advance()
}

// Write copies src into the element under the cursor, marks the segment dirty and advances.
func (c *Cursor) Write(src []byte) {
	copy(c.Element(), src)
	c.store.MarkDirty(c.seg)
	c.Advance()
}

// ReadN reads n consecutive elements starting at the cursor and returns them as separate
// copies in walk order.
func (c *Cursor) ReadN(n uint64) [][]byte {
	out := make([][]byte, n)
	buf := make([]byte, n*c.elementSize)
	for i := range n {
		elem := buf[i*c.elementSize : (i+1)*c.elementSize : (i+1)*c.elementSize]
		c.Read(elem)
		out[i] = elem
	}

	return out
}

// WriteAll writes data, a whole number of elements, starting at the cursor.
func (c *Cursor) WriteAll(data []byte) {
	for p := uint64(0); p < uint64(len(data)); p += c.elementSize {
		c.Write(data[p : p+c.elementSize])
	}
}
