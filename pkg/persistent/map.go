package persistent

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
	"github.com/vango-dev/nanostore/pkg/store"
)

// Map is a multi-field store persisted as one engine key per field, each
// key being the prefix followed by the field name.
type Map[V any] struct {
	prefix  string
	initial map[string]V
	listen  bool
	codec   Codec[V]
	engine  engine.Engine
	logger  *slog.Logger

	cell *store.Map[V]

	closeOnce sync.Once
	unlisten  func()
}

// NewMap creates a map persisted under prefix.
//
// Every stored key starting with prefix becomes a field, including keys
// that are not in initial. Fields of initial missing from the engine are
// written through and keep their initial value.
func NewMap[V any](prefix string, initial map[string]V, opts ...Option) (*Map[V], error) {
	o := newOptions(opts)
	codec, err := resolveCodec[V](o.codec)
	if err != nil {
		return nil, err
	}

	m := &Map[V]{
		prefix:  prefix,
		initial: present(initial),
		listen:  o.listen,
		codec:   codec,
		engine:  o.engine,
		logger:  o.logger.With("store", prefix),
	}

	fields, err := m.load(initial)
	if err != nil {
		return nil, err
	}
	m.cell = store.NewMap(fields)

	if m.listen {
		m.unlisten = o.events.SubscribePrefix(prefix, m.apply)
	}
	return m, nil
}

// load reads every field under prefix. Fields of defaults missing from the
// engine are written through and included.
func (m *Map[V]) load(defaults map[string]V) (map[string]V, error) {
	keys, err := engine.KeysWithPrefix(m.engine, m.prefix)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]V, len(keys)+len(defaults))
	for _, key := range keys {
		raw, ok, err := m.engine.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v, err := m.codec.Decode(raw)
		if err != nil {
			return nil, decodeError(key, err)
		}
		fields[strings.TrimPrefix(key, m.prefix)] = v
	}

	for name, v := range defaults {
		if _, stored := fields[name]; stored {
			continue
		}
		if err := m.write(name, v); err != nil {
			return nil, err
		}
		if !store.IsAbsent(v) {
			fields[name] = v
		}
	}
	return fields, nil
}

func (m *Map[V]) write(name string, v V) error {
	key := m.prefix + name
	if store.IsAbsent(v) {
		m.logger.Debug("delete", "field", name)
		return m.engine.Delete(key)
	}
	raw, err := m.codec.Encode(v)
	if err != nil {
		return encodeError(key, err)
	}
	m.logger.Debug("write through", "field", name)
	return m.engine.Set(key, raw)
}

// apply handles a change reported by another process.
func (m *Map[V]) apply(ev events.Event) error {
	if ev.Cleared() {
		m.cell.Set(m.initial)
		return nil
	}
	name := strings.TrimPrefix(ev.Key, m.prefix)
	if ev.Deleted {
		if v, ok := m.initial[name]; ok {
			m.cell.SetKey(name, v)
			return nil
		}
		m.cell.DeleteKey(name)
		return nil
	}
	v, err := m.codec.Decode(ev.Value)
	if err != nil {
		m.logger.Warn("remote value rejected", "field", name, "origin", ev.Origin, "error", err)
		return decodeError(ev.Key, err)
	}
	m.cell.SetKey(name, v)
	return nil
}

// Get returns the current fields. The result must not be modified.
func (m *Map[V]) Get() map[string]V {
	return m.cell.Get()
}

// Field returns one field and whether it is set.
func (m *Map[V]) Field(name string) (V, bool) {
	return m.cell.Field(name)
}

// SetKey writes one field through and then notifies subscribers. An absent
// v deletes the field's key and removes the field.
func (m *Map[V]) SetKey(name string, v V) error {
	if err := m.write(name, v); err != nil {
		return err
	}
	m.cell.SetKey(name, v)
	return nil
}

// Set replaces every field. Fields missing from fields have their keys
// deleted.
func (m *Map[V]) Set(fields map[string]V) error {
	for name := range m.cell.Get() {
		if _, keep := fields[name]; keep {
			continue
		}
		if err := m.engine.Delete(m.prefix + name); err != nil {
			return err
		}
	}
	for name, v := range fields {
		if err := m.write(name, v); err != nil {
			return err
		}
	}
	m.cell.Set(present(fields))
	return nil
}

// Hydrate re-reads every field from the engine and updates the store.
// Current fields missing from the engine are written through.
func (m *Map[V]) Hydrate() (map[string]V, error) {
	fields, err := m.load(m.cell.Get())
	if err != nil {
		return nil, err
	}
	m.cell.Set(fields)
	return m.cell.Get(), nil
}

// Subscribe implements store.Store.
func (m *Map[V]) Subscribe(fn func(map[string]V)) func() {
	return m.cell.Subscribe(fn)
}

// Listen implements store.Store.
func (m *Map[V]) Listen(fn func(map[string]V)) func() {
	return m.cell.Listen(fn)
}

// Kind implements store.Store.
func (m *Map[V]) Kind() store.Kind {
	return m.cell.Kind()
}

// Metadata implements Persistent.
func (m *Map[V]) Metadata() Metadata {
	return Metadata{Prefix: m.prefix, Listen: m.listen}
}

// Close stops applying remote changes. The store stays usable.
func (m *Map[V]) Close() {
	m.closeOnce.Do(func() {
		if m.unlisten != nil {
			m.unlisten()
		}
	})
}

// present returns a copy of fields without absent values.
func present[V any](fields map[string]V) map[string]V {
	out := make(map[string]V, len(fields))
	for name, v := range fields {
		if !store.IsAbsent(v) {
			out[name] = v
		}
	}
	return out
}
