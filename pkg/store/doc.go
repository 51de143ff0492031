// Package store provides the observable stores that persistent stores and
// the reactive bridge build on.
//
// A store holds one value and notifies subscribers when it changes:
//
//	count := store.NewAtom(0)
//	unsub := count.Subscribe(func(v int) {
//	    fmt.Println("count is", v) // called immediately, then on change
//	})
//	count.Set(1)
//	unsub()
//
// Map stores hold a map[string]V whose fields can be set individually:
//
//	settings := store.NewMap(map[string]string{"theme": "light"})
//	settings.SetKey("lang", "en")
//
// Map values are copy-on-write. A value returned by Get is never mutated by
// the store afterwards, and callers must treat it as read-only.
//
// Computed derives a read-only store from another store. It subscribes to
// its source only while it has subscribers of its own.
//
// Every store classifies its value type once at construction (see Kind); the
// reactive bridge uses that classification to choose between replacing and
// reconciling values.
package store
