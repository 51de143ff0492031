package reactive

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Owner is a scope that owns effects, mount hooks and cleanups. Owners
// form a tree; disposing an owner disposes its children first.
//
// The lifecycle is create → Mount → Dispose. Mount runs the registered
// mount hooks once; Dispose stops effects and runs cleanups in reverse
// registration order.
type Owner struct {
	id     uint64
	parent *Owner

	mu       sync.Mutex
	children []*Owner
	effects  []*Effect
	mounts   []func() error
	cleanups []func()

	mounted  atomic.Bool
	disposed atomic.Bool
}

// NewOwner creates an owner. A non-nil parent adopts it.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{id: nextID(), parent: parent}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, o)
		parent.mu.Unlock()
	}
	return o
}

// ID returns the owner's identifier.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsMounted reports whether Mount has run.
func (o *Owner) IsMounted() bool {
	return o.mounted.Load()
}

// IsDisposed reports whether Dispose has run.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addEffect(e *Effect) {
	if o.disposed.Load() {
		e.Dispose()
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.effects = append(o.effects, e)
}

// OnMount registers fn to run when the owner mounts. If the owner is
// already mounted fn runs immediately and its error is returned.
func (o *Owner) OnMount(fn func() error) error {
	if o.disposed.Load() {
		return nil
	}
	o.mu.Lock()
	if !o.mounted.Load() {
		o.mounts = append(o.mounts, fn)
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()
	return fn()
}

// Mount runs the mount hooks in registration order, then mounts the
// children. It runs once; later calls return nil. Hook errors are joined.
func (o *Owner) Mount() error {
	if o.disposed.Load() {
		return nil
	}
	o.mu.Lock()
	if !o.mounted.CompareAndSwap(false, true) {
		o.mu.Unlock()
		return nil
	}
	hooks := o.mounts
	o.mounts = nil
	children := append([]*Owner(nil), o.children...)
	o.mu.Unlock()

	var errs []error
	for _, fn := range hooks {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, child := range children {
		if err := child.Mount(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnCleanup registers fn to run when the owner is disposed. If the owner
// is already disposed fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// Dispose disposes the children (last created first), stops the effects
// and runs the cleanups in reverse order. It is idempotent.
func (o *Owner) Dispose() {
	if !o.disposed.CompareAndSwap(false, true) {
		return
	}

	o.mu.Lock()
	children := o.children
	effects := o.effects
	cleanups := o.cleanups
	o.children, o.effects, o.cleanups, o.mounts = nil, nil, nil, nil
	o.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}
	for _, e := range effects {
		e.Dispose()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}
}

func (o *Owner) removeChild(child *Owner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}
