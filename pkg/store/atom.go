package store

import "sync"

// Atom is a writable store holding a single value.
type Atom[T any] struct {
	mu    sync.RWMutex
	value T
	kind  Kind
	equal func(T, T) bool
	subs  emitter[T]
}

// NewAtom creates an atom holding initial.
func NewAtom[T any](initial T) *Atom[T] {
	return &Atom[T]{
		value: initial,
		kind:  KindOf(initial),
		equal: Equal[T],
	}
}

// WithEquals sets the function used to decide whether Set changes the value.
func (a *Atom[T]) WithEquals(fn func(T, T) bool) *Atom[T] {
	a.equal = fn
	return a
}

// Get returns the current value.
func (a *Atom[T]) Get() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Set replaces the value and notifies subscribers if it changed.
func (a *Atom[T]) Set(v T) {
	a.mu.Lock()
	if a.equal(a.value, v) {
		a.mu.Unlock()
		return
	}
	a.value = v
	a.subs.push(v)
	a.mu.Unlock()

	a.subs.drain()
}

// Subscribe implements Store.
func (a *Atom[T]) Subscribe(fn func(T)) func() {
	unsub := a.subs.add(fn)
	fn(a.Get())
	return unsub
}

// Listen implements Store.
func (a *Atom[T]) Listen(fn func(T)) func() {
	return a.subs.add(fn)
}

// Kind implements Store.
func (a *Atom[T]) Kind() Kind {
	return a.kind
}

// Subscribers returns the number of active subscriptions.
func (a *Atom[T]) Subscribers() int {
	return a.subs.count()
}
