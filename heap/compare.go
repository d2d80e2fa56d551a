package heap

import "bytes"

// Comparator orders two elements of equal size. It returns a negative number when a sorts
// before b, zero when they are equal and a positive number otherwise.
//
// A Comparator must be pure and define a strict weak ordering over elements of the
// collection's element size.
type Comparator func(a, b []byte) int

// CompareUnsignedLE compares a and b as little-endian unsigned integers of any width,
// scanning from the most significant (last) byte.
func CompareUnsignedLE(a, b []byte) int {
	for i := len(a) - 1; i >= 0; i-- {
		switch {
		case a[i] > b[i]:
			return 1
		case a[i] < b[i]:
			return -1
		}
	}

	return 0
}

// CompareUnsignedBE compares a and b as big-endian unsigned integers, which is plain
// lexicographic byte order.
func CompareUnsignedBE(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Reverse inverts cmp, turning the min-heap into a max-heap.
func Reverse(cmp Comparator) Comparator {
	return func(a, b []byte) int {
		return cmp(b, a)
	}
}
