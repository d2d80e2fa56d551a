// Package collision detects collection names that share an xxHash64 id.
package collision

import (
	"fmt"
	"strings"
	"sync"

	"github.com/arloliu/segcoll/errs"
	"github.com/arloliu/segcoll/internal/hash"
)

// Tracker remembers the collection names seen by one process and rejects a name whose id
// is already held by a different name. Snapshot manifests identify their collection by id
// only, so two such names could read each other's manifests.
//
// It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	names map[uint64]string // id → name
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{names: make(map[uint64]string)}
}

// Track validates name and records its id.
//
// Returns:
//   - uint64: the name's id
//   - error: ErrInvalidName for an empty name or one with a leading or trailing slash,
//     ErrHashCollision if another name already holds the id
func (t *Tracker) Track(name string) (uint64, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidName, name)
	}

	id := hash.ID(name)

	t.mu.Lock()
	defer t.mu.Unlock()

	return id, t.trackLocked(name, id)
}

// TrackID records name under a caller-computed id.
func (t *Tracker) TrackID(name string, id uint64) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", errs.ErrInvalidName)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.trackLocked(name, id)
}

func (t *Tracker) trackLocked(name string, id uint64) error {
	if existing, ok := t.names[id]; ok && existing != name {
		return fmt.Errorf("%w: %q and %q", errs.ErrHashCollision, existing, name)
	}
	t.names[id] = name

	return nil
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.names)
}

// Reset forgets every tracked name.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.names)
}
