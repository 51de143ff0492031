package engine

import (
	"strings"

	"github.com/vango-dev/nanostore/pkg/events"
)

// KeyMapper translates logical store keys to backend keys and back.
type KeyMapper interface {
	// ToBackend returns the backend key for a logical key.
	ToBackend(key string) string

	// FromBackend returns the logical key for a backend key, and false when
	// the backend key is outside the mapper's space.
	FromBackend(key string) (string, bool)
}

// Namespace returns a KeyMapper that prefixes every key with ns.
func Namespace(ns string) KeyMapper {
	return namespace(ns)
}

type namespace string

func (n namespace) ToBackend(key string) string {
	return string(n) + key
}

func (n namespace) FromBackend(key string) (string, bool) {
	if !strings.HasPrefix(key, string(n)) {
		return "", false
	}
	return key[len(n):], true
}

// Remap wraps e so that every key goes through m. Keys only reports backend
// keys that m maps back.
func Remap(e Engine, m KeyMapper) Engine {
	return &remapped{inner: e, mapper: m}
}

type remapped struct {
	inner  Engine
	mapper KeyMapper
}

func (r *remapped) Get(key string) (string, bool, error) {
	return r.inner.Get(r.mapper.ToBackend(key))
}

func (r *remapped) Set(key, value string) error {
	return r.inner.Set(r.mapper.ToBackend(key), value)
}

func (r *remapped) Delete(key string) error {
	return r.inner.Delete(r.mapper.ToBackend(key))
}

func (r *remapped) Keys() ([]string, error) {
	keys, err := r.inner.Keys()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if logical, ok := r.mapper.FromBackend(k); ok {
			out = append(out, logical)
		}
	}
	return out, nil
}

// Unwrap returns the wrapped engine.
func (r *remapped) Unwrap() Engine {
	return r.inner
}

// MapEvents returns a sink that rewrites the backend keys of change events
// to logical keys through m before handing them to sink. Events for keys
// outside m are dropped; cleared events pass unchanged.
func MapEvents(m KeyMapper, sink func(events.Event) error) func(events.Event) error {
	return func(ev events.Event) error {
		if ev.Cleared() {
			return sink(ev)
		}
		key, ok := m.FromBackend(ev.Key)
		if !ok {
			return nil
		}
		ev.Key = key
		return sink(ev)
	}
}
