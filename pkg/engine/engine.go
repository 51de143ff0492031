// Package engine provides the swappable key-value backends that persistent
// stores write through to.
//
// An Engine is a synchronous string-to-string mapping with enumeration.
// Backends:
//
//	engine.NewMemory()                  // in-process, the test substitute
//	engine.OpenFile("state.json")       // JSON document on local disk
//	engine.OpenSQLite("state.db")       // SQLite with a change log for polling
//	engine.NewS3(client, "bucket", "")  // one S3 object per key
//
// Any engine can be wrapped with Remap (key namespacing), Instrument
// (Prometheus metrics and OpenTelemetry spans) or relay.Broadcast.
//
// # Process-wide configuration
//
// Default returns the active engine. It starts out as an in-memory engine;
// applications install a durable one at startup:
//
//	h, err := engine.Open(cfg.Engine)
//	if err != nil { ... }
//	defer h.Close()
//	engine.SetDefault(h.Engine)
//
// Persistent stores capture the engine at construction, so changing the
// default afterwards only affects stores created later.
//
// Tests install an isolated in-memory engine with UseTestEngine (or
// enginetest.Use), simulate writes from other contexts with SetTestKey and
// tear everything down with ResetDefault.
package engine

import (
	"github.com/vango-dev/nanostore/internal/errors"
)

// Engine is a synchronous key-value backend.
//
// Implementations must be safe for concurrent use. A missing key is not an
// error: Get reports it with ok == false and Delete of a missing key
// succeeds.
type Engine interface {
	// Get returns the value stored under key.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, overwriting any existing value.
	Set(key, value string) error

	// Delete removes key.
	Delete(key string) error

	// Keys returns every stored key in no particular order.
	Keys() ([]string, error)
}

var (
	// ErrStorage matches failures reported by a backend.
	ErrStorage = errors.New("N301")

	// ErrUnknownEngine is returned by Open for an unsupported engine kind.
	ErrUnknownEngine = errors.New("N302")
)

// KeysWithPrefix returns the keys of e that start with prefix.
func KeysWithPrefix(e Engine, prefix string) ([]string, error) {
	keys, err := e.Keys()
	if err != nil {
		return nil, err
	}
	out := keys[:0:0]
	for _, k := range keys {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

// storageError wraps a backend failure with the storage error code.
func storageError(op, key string, err error) error {
	if key == "" {
		return errors.New("N301").WithDetail(op).Wrap(err)
	}
	return errors.New("N301").WithDetailf("%s %q", op, key).Wrap(err)
}
