package segment

// Compact shifts count elements from byte position src to byte position dst, closing the gap
// left by a removed range. Both cursors advance in lockstep and wrap independently when
// ringBytes is non-zero.
//
// dst must precede src in logical order. Each destination slot is written only after every
// earlier source slot was read, so the walk is safe even when the two ranges overlap.
func Compact(store *Store, dst, src, count, elementSize, ringBytes uint64) {
	if count == 0 || dst == src {
		return
	}

	to := NewCursor(store, dst, elementSize, ringBytes)
	from := NewCursor(store, src, elementSize, ringBytes)
	for range count {
		copy(to.Element(), from.Element())
		store.MarkDirty(to.seg)
		to.Advance()
		from.Advance()
	}
}
