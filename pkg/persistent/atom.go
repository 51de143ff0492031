package persistent

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
	"github.com/vango-dev/nanostore/pkg/store"
)

// Atom is a single-value store persisted under one engine key.
type Atom[T any] struct {
	key     string
	initial T
	listen  bool
	codec   Codec[T]
	engine  engine.Engine
	logger  *slog.Logger

	cell *store.Atom[T]

	closeOnce sync.Once
	unlisten  func()
}

// NewAtom creates an atom persisted under key.
//
// If the engine holds key, the decoded stored value wins over initial.
// Otherwise initial is written through (or key deleted when initial is
// absent), so the engine reflects the store's value once NewAtom returns.
func NewAtom[T any](key string, initial T, opts ...Option) (*Atom[T], error) {
	o := newOptions(opts)
	codec, err := resolveCodec[T](o.codec)
	if err != nil {
		return nil, err
	}

	a := &Atom[T]{
		key:     key,
		initial: initial,
		listen:  o.listen,
		codec:   codec,
		engine:  o.engine,
		logger:  o.logger.With("store", key),
	}

	v, err := a.load(initial)
	if err != nil {
		return nil, err
	}
	a.cell = store.NewAtom(v)

	if a.listen {
		a.unlisten = o.events.Subscribe(key, a.apply)
	}
	return a, nil
}

// load reads the stored value, writing fallback through when key is absent.
func (a *Atom[T]) load(fallback T) (T, error) {
	raw, ok, err := a.engine.Get(a.key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, a.write(fallback)
	}
	v, err := a.codec.Decode(raw)
	if err != nil {
		return fallback, decodeError(a.key, err)
	}
	return v, nil
}

// write stores v under key, or deletes key when v is absent.
func (a *Atom[T]) write(v T) error {
	if store.IsAbsent(v) {
		a.logger.Debug("delete")
		return a.engine.Delete(a.key)
	}
	raw, err := a.codec.Encode(v)
	if err != nil {
		return encodeError(a.key, err)
	}
	a.logger.Debug("write through")
	return a.engine.Set(a.key, raw)
}

// apply handles a change reported by another process.
func (a *Atom[T]) apply(ev events.Event) error {
	if ev.Cleared() || ev.Deleted {
		a.cell.Set(a.initial)
		return nil
	}
	v, err := a.codec.Decode(ev.Value)
	if err != nil {
		a.logger.Warn("remote value rejected", "origin", ev.Origin, "error", err)
		return decodeError(a.key, err)
	}
	a.cell.Set(v)
	return nil
}

// Get returns the current value.
func (a *Atom[T]) Get() T {
	return a.cell.Get()
}

// Set writes v through to the engine and then notifies subscribers.
// An absent v deletes the key. On error the store keeps its old value.
func (a *Atom[T]) Set(v T) error {
	if err := a.write(v); err != nil {
		return err
	}
	a.cell.Set(v)
	return nil
}

// Hydrate re-reads key from the engine and updates the store. When the key
// is missing the current value is written through.
func (a *Atom[T]) Hydrate() (T, error) {
	v, err := a.load(a.cell.Get())
	if err != nil {
		return v, err
	}
	a.cell.Set(v)
	return v, nil
}

// Subscribe implements store.Store.
func (a *Atom[T]) Subscribe(fn func(T)) func() {
	return a.cell.Subscribe(fn)
}

// Listen implements store.Store.
func (a *Atom[T]) Listen(fn func(T)) func() {
	return a.cell.Listen(fn)
}

// Kind implements store.Store.
func (a *Atom[T]) Kind() store.Kind {
	return a.cell.Kind()
}

// Metadata implements Persistent.
func (a *Atom[T]) Metadata() Metadata {
	return Metadata{Key: a.key, Listen: a.listen}
}

// Initial returns the value the atom was constructed with.
func (a *Atom[T]) Initial() T {
	return a.initial
}

// Close stops applying remote changes. The store stays usable.
func (a *Atom[T]) Close() {
	a.closeOnce.Do(func() {
		if a.unlisten != nil {
			a.unlisten()
		}
	})
}
