// Package events carries cross-context storage notifications.
//
// A notification says that some other execution context (another process
// sharing the storage backend, another session relayed over the network)
// changed a key. Stores subscribe to the keys or key prefixes they persist
// and apply remote values to their in-memory state.
//
// Local writes are never dispatched into the local channel: a store's own
// Set does not loop back through here. Sources that feed Dispatch are the
// relay client, the SQLite change-log poller and the test harness in
// package engine.
package events

import (
	"errors"
	"strings"
	"sync"
)

// Event describes a change to one storage key made by another context.
type Event struct {
	// Key is the storage key that changed. An empty Key means the whole
	// backend was cleared.
	Key string `json:"key"`

	// Value is the new encoded value. Meaningless when Deleted is true.
	Value string `json:"value,omitempty"`

	// Deleted reports that the key was removed.
	Deleted bool `json:"deleted,omitempty"`

	// Origin identifies the context that made the change, if known.
	Origin string `json:"origin,omitempty"`
}

// Cleared reports whether the event signals that the backend was cleared.
func (e Event) Cleared() bool {
	return e.Key == ""
}

// Listener receives events for the keys it subscribed to.
// A returned error is reported to the caller of Dispatch.
type Listener func(Event) error

type subscription struct {
	id     uint64
	key    string
	prefix bool
	fn     Listener
}

func (s *subscription) matches(ev Event) bool {
	if ev.Cleared() {
		return true
	}
	if s.prefix {
		return strings.HasPrefix(ev.Key, s.key)
	}
	return ev.Key == s.key
}

// Channel fans events out to key and prefix subscribers.
// Listeners run synchronously on the dispatching goroutine, in
// registration order, outside the channel's lock.
type Channel struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*subscription
}

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{}
}

// Subscribe registers fn for events on exactly key.
// The returned function removes the subscription; calling it more than once
// is a no-op.
func (c *Channel) Subscribe(key string, fn Listener) func() {
	return c.add(&subscription{key: key, fn: fn})
}

// SubscribePrefix registers fn for events on every key starting with prefix.
func (c *Channel) SubscribePrefix(prefix string, fn Listener) func() {
	return c.add(&subscription{key: prefix, prefix: true, fn: fn})
}

func (c *Channel) add(s *subscription) func() {
	c.mu.Lock()
	c.nextID++
	s.id = c.nextID
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(s.id) })
	}
}

func (c *Channel) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subs {
		if s.id == id {
			// Preserve order; dispatch order is registration order.
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

// Dispatch delivers ev to every matching listener and returns their errors
// joined. Events no listener is interested in are ignored.
func (c *Channel) Dispatch(ev Event) error {
	c.mu.RLock()
	matched := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		if s.matches(ev) {
			matched = append(matched, s)
		}
	}
	c.mu.RUnlock()

	var errs []error
	for _, s := range matched {
		if err := s.fn(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of active subscriptions.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

var (
	defaultMu      sync.RWMutex
	defaultChannel = NewChannel()
)

// Default returns the process-wide channel.
func Default() *Channel {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultChannel
}

// ResetDefault replaces the process-wide channel with an empty one and
// returns it. Stores created earlier keep their subscriptions on the old
// channel.
func ResetDefault() *Channel {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultChannel = NewChannel()
	return defaultChannel
}
