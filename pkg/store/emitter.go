package store

import "sync"

// Store is a read-only observable value.
type Store[T any] interface {
	// Get returns the current value.
	Get() T

	// Subscribe calls fn with the current value and again on every change.
	// The returned function removes the subscription; it is idempotent.
	Subscribe(fn func(T)) (unsubscribe func())

	// Listen is Subscribe without the immediate call.
	Listen(fn func(T)) (unsubscribe func())

	// Kind returns the value classification decided at construction.
	Kind() Kind
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// emitter manages subscribers for a store. Subscribers are notified in
// registration order, outside the lock.
//
// Values are delivered in the order they were pushed, one at a time. A push
// made while another goroutine (or a subscriber callback) is delivering is
// queued and delivered by that goroutine before it returns.
type emitter[T any] struct {
	mu     sync.Mutex
	subs   []subscriber[T]
	nextID uint64

	queueMu  sync.Mutex
	queue    []T
	draining bool

	// onFirst and onLast run when the subscriber count goes from zero to one
	// and back.
	onFirst func()
	onLast  func()
}

func (e *emitter[T]) add(fn func(T)) func() {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	first := len(e.subs) == 0
	e.subs = append(e.subs, subscriber[T]{id: id, fn: fn})
	e.mu.Unlock()

	if first && e.onFirst != nil {
		e.onFirst()
	}

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *emitter[T]) remove(id uint64) {
	e.mu.Lock()
	last := false
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			last = len(e.subs) == 0
			break
		}
	}
	e.mu.Unlock()

	if last && e.onLast != nil {
		e.onLast()
	}
}

// emit pushes v and delivers everything pending.
func (e *emitter[T]) emit(v T) {
	e.push(v)
	e.drain()
}

// push queues v. Stores call it while holding their value lock so that the
// queue order matches the order values were stored.
func (e *emitter[T]) push(v T) {
	e.queueMu.Lock()
	e.queue = append(e.queue, v)
	e.queueMu.Unlock()
}

// drain delivers queued values unless another call is already doing so.
func (e *emitter[T]) drain() {
	e.queueMu.Lock()
	if e.draining {
		e.queueMu.Unlock()
		return
	}
	e.draining = true
	e.queueMu.Unlock()

	finished := false
	defer func() {
		// A panicking subscriber must not leave the queue stuck.
		if !finished {
			e.queueMu.Lock()
			e.draining = false
			e.queueMu.Unlock()
		}
	}()

	for {
		v, ok := e.pop()
		if !ok {
			finished = true
			return
		}
		e.deliver(v)
	}
}

// pop takes the next queued value. When the queue is empty it ends the
// drain in the same critical section so no push can be stranded.
func (e *emitter[T]) pop() (T, bool) {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	var zero T
	if len(e.queue) == 0 {
		e.draining = false
		return zero, false
	}
	v := e.queue[0]
	e.queue[0] = zero
	e.queue = e.queue[1:]
	return v, true
}

func (e *emitter[T]) deliver(v T) {
	e.mu.Lock()
	subs := make([]subscriber[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

func (e *emitter[T]) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
