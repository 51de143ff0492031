package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/nanostore/pkg/events"
)

func resetAll(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		ResetDefault()
		events.ResetDefault()
	})
}

func TestDefaultIsMemory(t *testing.T) {
	resetAll(t)
	ResetDefault()
	_, ok := Default().(*Memory)
	assert.True(t, ok)
}

func TestSetDefault(t *testing.T) {
	resetAll(t)
	m := NewMemory()
	SetDefault(m)
	assert.Same(t, m, Default())
}

func TestSetKeyMapper(t *testing.T) {
	resetAll(t)
	m := UseTestEngine()
	SetKeyMapper(Namespace("t1:"))

	require.NoError(t, Default().Set("theme", "dark"))
	assert.Equal(t, map[string]string{"t1:theme": "dark"}, m.Snapshot())

	SetKeyMapper(nil)
	_, ok, err := Default().Get("theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetTestKeyRequiresTestEngine(t *testing.T) {
	resetAll(t)
	ResetDefault()
	assert.Error(t, SetTestKey("theme", "dark"))
	assert.Error(t, DeleteTestKey("theme"))
	assert.Nil(t, TestStorage())
}

func TestSetTestKeyDispatches(t *testing.T) {
	resetAll(t)
	UseTestEngine()

	var got []events.Event
	events.Default().Subscribe("theme", func(ev events.Event) error {
		got = append(got, ev)
		return nil
	})

	require.NoError(t, SetTestKey("theme", "dark"))
	require.NoError(t, DeleteTestKey("theme"))

	assert.Equal(t, []events.Event{
		{Key: "theme", Value: "dark", Origin: TestOrigin},
		{Key: "theme", Deleted: true, Origin: TestOrigin},
	}, got)
	assert.Empty(t, TestStorage())
}

func TestTestStorageUsesBackendKeys(t *testing.T) {
	resetAll(t)
	UseTestEngine()
	SetKeyMapper(Namespace("ns:"))

	require.NoError(t, SetTestKey("lang", "de"))
	assert.Equal(t, map[string]string{"ns:lang": "de"}, TestStorage())

	CleanTestStorage()
	assert.Empty(t, TestStorage())
}
