// Package errs defines the sentinel errors returned by segcoll packages.
//
// Engines wrap these with operation context using fmt.Errorf("%w: ..."), so callers
// should always test with errors.Is:
//
//	if errors.Is(err, errs.ErrCapacity) {
//	    // collection is full
//	}
package errs

import "errors"

// Engine error kinds. Every engine failure is one of these and is detected before
// any byte of collection state is written.
var (
	// ErrCapacity is returned when an insert would make length exceed max_length.
	ErrCapacity = errors.New("insufficient space")
	// ErrUnderflow is returned when a pop or peek asks for more elements than are present.
	ErrUnderflow = errors.New("not enough elements")
	// ErrOutOfBounds is returned when a slice, get or remove range is invalid.
	ErrOutOfBounds = errors.New("index out of bounds")
	// ErrMalformedInput is returned when a payload is not a whole number of elements,
	// or not exactly one element where one is required.
	ErrMalformedInput = errors.New("malformed element payload")
)

// Layout and metadata errors.
var (
	ErrInvalidGeometry    = errors.New("invalid collection geometry")
	ErrInvalidMetaSize    = errors.New("invalid metadata record size")
	ErrCorruptMeta        = errors.New("inconsistent metadata record")
	ErrNotEnoughSegments  = errors.New("not enough segments to cover collection")
	ErrInvalidInstruction = errors.New("invalid instruction data")
)

// Snapshot manifest errors.
var (
	ErrInvalidHeaderSize  = errors.New("invalid manifest header size")
	ErrInvalidHeaderFlags = errors.New("invalid manifest header flags")
	ErrInvalidManifest    = errors.New("invalid snapshot manifest")
	ErrInvalidName        = errors.New("invalid collection name")
	ErrHashCollision      = errors.New("collection name hash collision")
)

// Collaborator errors.
var (
	ErrBudgetExceeded   = errors.New("segment budget exceeded")
	ErrReclaimed        = errors.New("segment already reclaimed")
	ErrChecksumMismatch = errors.New("segment checksum mismatch")
	ErrNotFound         = errors.New("not found")
	ErrConcurrentCommit = errors.New("concurrent snapshot commit")
)
