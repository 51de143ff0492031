// Package enginetest installs an isolated in-memory engine for a test.
//
//	func TestTheme(t *testing.T) {
//		mem := enginetest.Use(t)
//		theme, _ := persistent.NewAtom("theme", "light")
//		_ = engine.SetTestKey("theme", "dark")
//		...
//	}
package enginetest

import (
	"strings"
	"testing"

	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
)

// Use installs a fresh test engine and event channel for t and restores the
// defaults when t finishes. Keys are namespaced by the test name so parallel
// packages sharing a durable backend cannot collide; the returned Memory
// holds the namespaced keys.
func Use(t testing.TB) *engine.Memory {
	t.Helper()
	events.ResetDefault()
	mem := engine.UseTestEngine()
	engine.SetKeyMapper(engine.Namespace(Namespace(t)))
	t.Cleanup(func() {
		engine.ResetDefault()
		events.ResetDefault()
	})
	return mem
}

// Namespace returns the key prefix Use installs for t.
func Namespace(t testing.TB) string {
	return strings.ReplaceAll(t.Name(), "/", ":") + ":"
}

// Storage returns the test engine contents keyed by logical key.
func Storage(t testing.TB) map[string]string {
	t.Helper()
	ns := Namespace(t)
	out := make(map[string]string)
	for k, v := range engine.TestStorage() {
		if strings.HasPrefix(k, ns) {
			out[k[len(ns):]] = v
		}
	}
	return out
}
