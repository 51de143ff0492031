// Package bridge exposes stores to the reactive runtime.
//
// Use binds a store to an owner scope and returns an Accessor whose reads
// are tracked by effects:
//
//	owner := reactive.NewOwner(nil)
//	settings, err := bridge.Use(owner, settingsStore)
//	if err != nil { ... }
//
//	reactive.WithOwner(owner, func() {
//	    reactive.CreateEffect(func() reactive.Cleanup {
//	        fmt.Println(bridge.Field[string](settings, "theme"))
//	        return nil
//	    })
//	})
//	_ = owner.Mount()  // persistent stores hydrate here
//	...
//	owner.Dispose()    // unsubscribes from the store
//
// Primitive values replace the accessor's value. Structured values are
// reconciled: unchanged parts keep their identity, and an effect reading
// one field through Key or Field re-runs only when that field changed.
package bridge

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/nanostore/internal/errors"
	"github.com/vango-dev/nanostore/pkg/persistent"
	"github.com/vango-dev/nanostore/pkg/reactive"
	"github.com/vango-dev/nanostore/pkg/store"
)

// ErrUnsupportedShape is returned by Use for stores whose values cannot be
// held by an accessor.
var ErrUnsupportedShape = errors.New("N201")

// Accessor is the read side of a store inside an owner scope.
type Accessor[T any] struct {
	kind  store.Kind
	value *reactive.Signal[T]

	keysMu sync.Mutex
	keys   map[string]*reactive.Signal[any]

	unsubscribe func()
	released    atomic.Bool
	passes      atomic.Int64
}

// Option configures Use.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Use binds s to owner. The subscription is taken immediately and released
// when owner is disposed. When owner mounts, stores implementing
// persistent.Hydrator are refreshed from their engine; the refreshed value
// reaches the accessor through the subscription.
func Use[T any](owner *reactive.Owner, s store.Store[T], opts ...Option) (*Accessor[T], error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	kind := s.Kind()
	if kind == store.KindInvalid {
		var zero T
		return nil, errors.New("N201").
			WithDetailf("store value type %T", zero).
			WithSuggestion("Store strings, numbers, structs, slices or maps with string keys")
	}

	a := &Accessor[T]{
		kind:  kind,
		value: reactive.NewSignal(s.Get()),
		keys:  make(map[string]*reactive.Signal[any]),
	}
	if kind == store.KindStructured {
		a.value.WithEquals(same[T])
	}

	a.unsubscribe = s.Subscribe(a.apply)
	owner.OnCleanup(a.release)

	if h, ok := s.(persistent.Hydrator[T]); ok {
		err := owner.OnMount(func() error {
			if a.released.Load() {
				return nil
			}
			if _, err := h.Hydrate(); err != nil {
				return err
			}
			if p, ok := s.(persistent.Persistent); ok {
				o.logger.Debug("store hydrated", "key", p.Metadata().Key, "prefix", p.Metadata().Prefix)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// apply runs one update pass for a value emitted by the store.
func (a *Accessor[T]) apply(v T) {
	if a.released.Load() {
		return
	}
	a.passes.Add(1)

	if a.kind == store.KindPrimitive {
		a.value.Set(v)
		return
	}

	reactive.Batch(func() {
		next := Reconcile(a.value.Peek(), v)
		a.value.Set(next)

		root := reflect.ValueOf(&next).Elem()
		a.keysMu.Lock()
		keys := make(map[string]*reactive.Signal[any], len(a.keys))
		for name, sig := range a.keys {
			keys[name] = sig
		}
		a.keysMu.Unlock()

		for name, sig := range keys {
			sig.Set(fieldValue(root, name))
		}
	})
}

func (a *Accessor[T]) release() {
	if a.released.CompareAndSwap(false, true) {
		a.unsubscribe()
	}
}

// Get returns the current value and tracks it in the running effect.
func (a *Accessor[T]) Get() T {
	return a.value.Get()
}

// Peek returns the current value without tracking.
func (a *Accessor[T]) Peek() T {
	return a.value.Peek()
}

// Key returns the named part of a structured value (map entry, struct
// field or slice index) and tracks only that part. It returns nil when
// the part does not exist.
func (a *Accessor[T]) Key(name string) any {
	a.keysMu.Lock()
	sig, ok := a.keys[name]
	if !ok {
		root := a.value.Peek()
		sig = reactive.NewSignal(fieldValue(reflect.ValueOf(&root).Elem(), name)).
			WithEquals(same[any])
		a.keys[name] = sig
	}
	a.keysMu.Unlock()
	return sig.Get()
}

// Kind returns the classification of the store's values.
func (a *Accessor[T]) Kind() store.Kind {
	return a.kind
}

// Passes returns the number of update passes applied so far, including the
// initial one made when the subscription was taken.
func (a *Accessor[T]) Passes() int64 {
	return a.passes.Load()
}

// Field returns the named part of the accessor's value as V, or the zero
// value when it is missing or of another type.
func Field[V, T any](a *Accessor[T], name string) V {
	v, _ := a.Key(name).(V)
	return v
}

func fieldValue(root reflect.Value, name string) any {
	f := field(root, name)
	if !f.IsValid() || !f.CanInterface() {
		return nil
	}
	return f.Interface()
}
