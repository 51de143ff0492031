package reactive

import (
	"sync"
	"sync/atomic"
)

// Effect re-runs a function whenever a signal it read changes.
type Effect struct {
	id    uint64
	fn    func() Cleanup
	owner *Owner

	cleanup Cleanup

	sourcesMu sync.Mutex
	sources   []*source

	pending  atomic.Bool
	running  atomic.Bool
	disposed atomic.Bool
}

// CreateEffect runs fn immediately and again whenever a signal it read
// changes. The effect belongs to the current owner and is disposed with it.
func CreateEffect(fn func() Cleanup) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: currentOwner(),
	}
	if e.owner != nil {
		e.owner.addEffect(e)
	}
	e.MarkDirty()
	return e
}

// ID implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// MarkDirty implements Listener. The effect re-runs synchronously; a change
// made while it is running schedules one more run after the current one.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}
	e.pending.Store(true)
	for {
		if !e.running.CompareAndSwap(false, true) {
			return
		}
		for e.pending.Swap(false) && !e.disposed.Load() {
			e.run()
		}
		e.running.Store(false)
		if !e.pending.Load() || e.disposed.Load() {
			return
		}
	}
}

func (e *Effect) run() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.untrackAll()

	prevListener := swapListener(e)
	prevOwner := swapOwner(e.owner)
	defer func() {
		swapOwner(prevOwner)
		swapListener(prevListener)
	}()

	e.cleanup = e.fn()
}

func (e *Effect) track(s *source) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	for _, existing := range e.sources {
		if existing == s {
			return
		}
	}
	e.sources = append(e.sources, s)
}

func (e *Effect) untrackAll() {
	e.sourcesMu.Lock()
	sources := e.sources
	e.sources = nil
	e.sourcesMu.Unlock()

	for _, s := range sources {
		s.unsubscribe(e)
	}
}

// Dispose stops the effect and runs its last cleanup.
func (e *Effect) Dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}
	e.untrackAll()
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// IsDisposed reports whether Dispose was called.
func (e *Effect) IsDisposed() bool {
	return e.disposed.Load()
}
