// Package blobstore persists snapshot blobs: segment payloads and manifests.
//
// Blobs are immutable and small enough to handle as whole byte slices; a blob is
// written once under a name and later read, listed or deleted. MemoryStore and LocalStore
// live here; the s3 and minio subpackages provide object storage backends.
package blobstore

import (
	"context"

	"github.com/arloliu/segcoll/errs"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = errs.ErrNotFound

// Store is a flat namespace of immutable blobs. Names use '/' as separator.
type Store interface {
	// Put writes a blob, replacing any blob of the same name. Put must not retain data
	// after it returns; callers reuse the buffer.
	Put(ctx context.Context, name string, data []byte) error
	// Get reads a whole blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
