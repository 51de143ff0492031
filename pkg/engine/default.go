package engine

import (
	"fmt"
	"sync"

	"github.com/vango-dev/nanostore/pkg/events"
)

// TestOrigin is the Origin of events dispatched by SetTestKey.
const TestOrigin = "test"

var (
	defaultMu     sync.RWMutex
	defaultEngine Engine = NewMemory()
	defaultMapper KeyMapper
	testEngine    *Memory
)

// Default returns the active process-wide engine, with the key mapper
// installed by SetKeyMapper applied.
func Default() Engine {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultMapper != nil {
		return Remap(defaultEngine, defaultMapper)
	}
	return defaultEngine
}

// SetDefault installs e as the process-wide engine.
func SetDefault(e Engine) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEngine = e
}

// SetKeyMapper designates a key mapper applied by Default. Pass nil to
// remove it.
func SetKeyMapper(m KeyMapper) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMapper = m
}

// ResetDefault restores a fresh in-memory default engine and drops the key
// mapper and any test engine.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEngine = NewMemory()
	defaultMapper = nil
	testEngine = nil
}

// UseTestEngine installs a fresh in-memory engine as the default and
// returns it.
func UseTestEngine() *Memory {
	m := NewMemory()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEngine = m
	testEngine = m
	return m
}

func activeTestEngine() (Engine, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if testEngine == nil {
		return nil, fmt.Errorf("engine: no test engine installed, call UseTestEngine first")
	}
	if defaultMapper != nil {
		return Remap(testEngine, defaultMapper), nil
	}
	return testEngine, nil
}

// SetTestKey writes value under key in the test engine and dispatches an
// event to events.Default() as if another context had made the change.
// The returned error is the joined error of the listeners.
func SetTestKey(key, value string) error {
	e, err := activeTestEngine()
	if err != nil {
		return err
	}
	if err := e.Set(key, value); err != nil {
		return err
	}
	return events.Default().Dispatch(events.Event{Key: key, Value: value, Origin: TestOrigin})
}

// DeleteTestKey removes key from the test engine and dispatches a deletion
// event to events.Default().
func DeleteTestKey(key string) error {
	e, err := activeTestEngine()
	if err != nil {
		return err
	}
	if err := e.Delete(key); err != nil {
		return err
	}
	return events.Default().Dispatch(events.Event{Key: key, Deleted: true, Origin: TestOrigin})
}

// TestStorage returns a snapshot of the test engine, keyed by backend key.
// It returns nil when no test engine is installed.
func TestStorage() map[string]string {
	defaultMu.RLock()
	m := testEngine
	defaultMu.RUnlock()
	if m == nil {
		return nil
	}
	return m.Snapshot()
}

// CleanTestStorage removes every key from the test engine.
func CleanTestStorage() {
	defaultMu.RLock()
	m := testEngine
	defaultMu.RUnlock()
	if m != nil {
		m.Clear()
	}
}
