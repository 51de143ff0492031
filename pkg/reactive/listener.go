package reactive

import "sync/atomic"

// Listener is notified when a signal it read changes.
type Listener interface {
	// MarkDirty reports that a dependency changed.
	MarkDirty()

	// ID identifies the listener for deduplication.
	ID() uint64
}

// Cleanup is returned by an effect run and called before the next run and
// on disposal.
type Cleanup func()

var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}
