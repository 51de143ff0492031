package store

import (
	"maps"
	"sync"
)

// Map is a writable store holding named fields.
//
// Every change allocates a new map; values handed to subscribers are never
// modified afterwards.
type Map[V any] struct {
	mu    sync.RWMutex
	value map[string]V
	subs  emitter[map[string]V]
}

// NewMap creates a map store holding a copy of initial.
func NewMap[V any](initial map[string]V) *Map[V] {
	return &Map[V]{value: cloneFields(initial)}
}

// Get returns the current fields. The result must not be modified.
func (m *Map[V]) Get() map[string]V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// Field returns one field and whether it is set.
func (m *Map[V]) Field(name string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.value[name]
	return v, ok
}

// SetKey sets one field and notifies subscribers if it changed. An absent
// value (see IsAbsent) removes the field.
func (m *Map[V]) SetKey(name string, v V) {
	m.mu.Lock()
	old, had := m.value[name]
	absent := IsAbsent(v)
	if (absent && !had) || (had && !absent && Equal(old, v)) {
		m.mu.Unlock()
		return
	}
	next := cloneFields(m.value)
	if absent {
		delete(next, name)
	} else {
		next[name] = v
	}
	m.value = next
	m.subs.push(next)
	m.mu.Unlock()

	m.subs.drain()
}

// DeleteKey removes one field and notifies subscribers if it was set.
func (m *Map[V]) DeleteKey(name string) {
	m.mu.Lock()
	if _, had := m.value[name]; !had {
		m.mu.Unlock()
		return
	}
	next := cloneFields(m.value)
	delete(next, name)
	m.value = next
	m.subs.push(next)
	m.mu.Unlock()

	m.subs.drain()
}

// Set replaces every field and notifies subscribers if anything changed.
func (m *Map[V]) Set(fields map[string]V) {
	next := cloneFields(fields)
	m.mu.Lock()
	if Equal(m.value, next) {
		m.mu.Unlock()
		return
	}
	m.value = next
	m.subs.push(next)
	m.mu.Unlock()

	m.subs.drain()
}

// Subscribe implements Store.
func (m *Map[V]) Subscribe(fn func(map[string]V)) func() {
	unsub := m.subs.add(fn)
	fn(m.Get())
	return unsub
}

// Listen implements Store.
func (m *Map[V]) Listen(fn func(map[string]V)) func() {
	return m.subs.add(fn)
}

// Kind implements Store. Maps are always structured.
func (m *Map[V]) Kind() Kind {
	return KindStructured
}

func cloneFields[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	maps.Copy(out, in)
	return out
}
