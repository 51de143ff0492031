package store

import "sync"

// Computed is a read-only store derived from another store.
//
// While it has subscribers it follows its source and caches the derived
// value. Without subscribers Get recomputes from the source on each call.
type Computed[T, S any] struct {
	source Store[S]
	fn     func(S) T
	kind   Kind

	mu       sync.Mutex
	value    T
	attached bool
	detach   func()
	subs     emitter[T]
}

// NewComputed derives a store from source through fn.
func NewComputed[T, S any](source Store[S], fn func(S) T) *Computed[T, S] {
	c := &Computed[T, S]{source: source, fn: fn}
	c.kind = KindOf(fn(source.Get()))
	c.subs.onFirst = c.attach
	c.subs.onLast = c.release
	return c
}

func (c *Computed[T, S]) attach() {
	detach := c.source.Subscribe(func(s S) {
		v := c.fn(s)
		c.mu.Lock()
		changed := !c.attached || !Equal(c.value, v)
		c.value = v
		first := !c.attached
		c.attached = true
		c.mu.Unlock()
		if changed && !first {
			c.subs.emit(v)
		}
	})
	c.mu.Lock()
	c.detach = detach
	c.mu.Unlock()
}

func (c *Computed[T, S]) release() {
	c.mu.Lock()
	detach := c.detach
	c.detach = nil
	c.attached = false
	c.mu.Unlock()
	if detach != nil {
		detach()
	}
}

// Get returns the derived value.
func (c *Computed[T, S]) Get() T {
	c.mu.Lock()
	if c.attached {
		defer c.mu.Unlock()
		return c.value
	}
	c.mu.Unlock()
	return c.fn(c.source.Get())
}

// Subscribe implements Store.
func (c *Computed[T, S]) Subscribe(fn func(T)) func() {
	unsub := c.subs.add(fn)
	fn(c.Get())
	return unsub
}

// Listen implements Store.
func (c *Computed[T, S]) Listen(fn func(T)) func() {
	return c.subs.add(fn)
}

// Kind implements Store.
func (c *Computed[T, S]) Kind() Kind {
	return c.kind
}
