package reactive

import (
	"reflect"
	"sync"
)

// source is the type-erased subscriber list of a signal.
type source struct {
	mu   sync.RWMutex
	subs []Listener
}

func (s *source) subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing.ID() == l.ID() {
			return
		}
	}
	s.subs = append(s.subs, l)
}

func (s *source) unsubscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subs {
		if existing.ID() == l.ID() {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify marks every subscriber dirty, or queues them inside a batch.
func (s *source) notify() {
	s.mu.RLock()
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	st := state()
	if st.batchDepth > 0 {
		st.pending = append(st.pending, subs...)
		return
	}
	for _, l := range subs {
		l.MarkDirty()
	}
}

func (s *source) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Signal is a reactive value. Get inside an effect subscribes the effect.
type Signal[T any] struct {
	src   source
	id    uint64
	mu    sync.RWMutex
	value T
	equal func(T, T) bool
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{id: nextID(), value: initial}
}

// WithEquals sets the function deciding whether Set changes the value.
// The default uses == for scalars and reflect.DeepEqual otherwise.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the signal's identifier.
func (s *Signal[T]) ID() uint64 {
	return s.id
}

// Get returns the value and subscribes the current listener.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	v := s.value
	s.mu.RUnlock()

	if l := currentListener(); l != nil {
		s.src.subscribe(l)
		if e, ok := l.(*Effect); ok {
			e.track(&s.src)
		}
	}
	return v
}

// Peek returns the value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores v and notifies subscribers if it differs from the current
// value.
func (s *Signal[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) under the signal's lock.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equals(s.value, next)
	if changed {
		s.value = next
	}
	s.mu.Unlock()

	if changed {
		s.src.notify()
	}
}

// Subscribers returns the number of listeners subscribed to the signal.
func (s *Signal[T]) Subscribers() int {
	return s.src.count()
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	switch av := any(a).(type) {
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}
