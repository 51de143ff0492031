package persistent

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/engine/enginetest"
	"github.com/vango-dev/nanostore/pkg/events"
	"github.com/vango-dev/nanostore/pkg/store"
)

var intCodec = CodecFuncs[int]{
	EncodeFunc: func(v int) (string, error) { return strconv.Itoa(v), nil },
	DecodeFunc: strconv.Atoi,
}

func TestAtomWritesInitialThrough(t *testing.T) {
	enginetest.Use(t)
	assert.Empty(t, enginetest.Storage(t))

	a, err := NewAtom("test:key", "init")
	require.NoError(t, err)

	assert.Equal(t, "init", a.Get())
	assert.Equal(t, map[string]string{"test:key": "init"}, enginetest.Storage(t))
	assert.Equal(t, Metadata{Key: "test:key", Listen: true}, a.Metadata())
	assert.Equal(t, store.KindPrimitive, a.Kind())
}

func TestAtomStoredValueWins(t *testing.T) {
	enginetest.Use(t)
	require.NoError(t, engine.Default().Set("test:key", "saved"))

	a, err := NewAtom("test:key", "init")
	require.NoError(t, err)
	assert.Equal(t, "saved", a.Get())
	assert.Equal(t, "saved", enginetest.Storage(t)["test:key"])
}

func TestAtomSetWritesThrough(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "init")
	require.NoError(t, err)

	require.NoError(t, a.Set("new"))
	assert.Equal(t, "new", a.Get())
	assert.Equal(t, "new", enginetest.Storage(t)["test:key"])
}

func TestAtomWriteThroughPrecedesNotify(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "init")
	require.NoError(t, err)

	var seen string
	a.Listen(func(string) {
		seen, _, _ = engine.Default().Get("test:key")
	})
	require.NoError(t, a.Set("new"))
	assert.Equal(t, "new", seen)
}

func TestAtomAbsentDeletesKey(t *testing.T) {
	enginetest.Use(t)
	initial := "init"
	a, err := NewAtom("test:key", &initial)
	require.NoError(t, err)
	assert.Equal(t, "init", enginetest.Storage(t)["test:key"])

	require.NoError(t, a.Set(nil))
	assert.Nil(t, a.Get())
	assert.NotContains(t, enginetest.Storage(t), "test:key")
}

func TestAtomAbsentInitialLeavesKeyAbsent(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom[*string]("test:key", nil)
	require.NoError(t, err)
	assert.Nil(t, a.Get())
	assert.Empty(t, enginetest.Storage(t))
}

func TestAtomFreshConstructionAfterDeletion(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "init")
	require.NoError(t, err)
	require.NoError(t, a.Set("changed"))
	a.Close()

	require.NoError(t, engine.Default().Delete("test:key"))

	b, err := NewAtom("test:key", "init")
	require.NoError(t, err)
	assert.Equal(t, "init", b.Get())
}

func TestAtomRemoteChange(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "initialValue")
	require.NoError(t, err)

	var got []string
	a.Listen(func(v string) { got = append(got, v) })

	// Dispatch without touching the engine: a remote apply must not write.
	require.NoError(t, events.Default().Dispatch(events.Event{Key: "test:key", Value: "emittedValue"}))
	assert.Equal(t, "emittedValue", a.Get())
	assert.Equal(t, "initialValue", enginetest.Storage(t)["test:key"])
	assert.Equal(t, []string{"emittedValue"}, got)

	require.NoError(t, events.Default().Dispatch(events.Event{Key: "other", Value: "x"}))
	assert.Equal(t, "emittedValue", a.Get())
}

func TestAtomRemoteDeletionRevertsToInitial(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "initialValue")
	require.NoError(t, err)
	require.NoError(t, a.Set("newValue"))

	require.NoError(t, engine.DeleteTestKey("test:key"))
	assert.Equal(t, "initialValue", a.Get())
	assert.NotContains(t, enginetest.Storage(t), "test:key", "deletion is not undone")
}

func TestAtomClearedRevertsToInitial(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "initialValue")
	require.NoError(t, err)
	require.NoError(t, a.Set("newValue"))

	engine.CleanTestStorage()
	require.NoError(t, events.Default().Dispatch(events.Event{}))

	assert.Equal(t, "initialValue", a.Get())
	assert.Empty(t, enginetest.Storage(t))
}

func TestAtomListenDisabled(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "initialValue", Listen(false))
	require.NoError(t, err)
	assert.False(t, a.Metadata().Listen)

	require.NoError(t, engine.SetTestKey("test:key", "emittedValue"))
	assert.Equal(t, "initialValue", a.Get())
	assert.Equal(t, 0, events.Default().Len())
}

func TestAtomClose(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "initialValue")
	require.NoError(t, err)
	a.Close()
	a.Close()

	require.NoError(t, engine.SetTestKey("test:key", "emittedValue"))
	assert.Equal(t, "initialValue", a.Get())
}

func TestAtomCodec(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:count", 3, WithCodec[int](intCodec))
	require.NoError(t, err)
	assert.Equal(t, "3", enginetest.Storage(t)["test:count"])

	require.NoError(t, engine.SetTestKey("test:count", "9"))
	assert.Equal(t, 9, a.Get())
}

func TestAtomRequiresCodec(t *testing.T) {
	enginetest.Use(t)
	_, err := NewAtom("test:count", 3)
	assert.ErrorIs(t, err, ErrCodec)
}

func TestAtomDecodeFailure(t *testing.T) {
	enginetest.Use(t)
	require.NoError(t, engine.Default().Set("test:count", "three"))

	_, err := NewAtom("test:count", 3, WithCodec[int](intCodec))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)

	require.NoError(t, engine.Default().Set("test:count", "1"))
	a, err := NewAtom("test:count", 3, WithCodec[int](intCodec))
	require.NoError(t, err)

	err = engine.SetTestKey("test:count", "four")
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, 1, a.Get(), "a bad remote value is not applied")
}

func TestAtomEncodeFailure(t *testing.T) {
	enginetest.Use(t)
	boom := errors.New("boom")
	c := CodecFuncs[int]{
		EncodeFunc: func(v int) (string, error) {
			if v < 0 {
				return "", boom
			}
			return strconv.Itoa(v), nil
		},
		DecodeFunc: strconv.Atoi,
	}
	a, err := NewAtom("test:count", 1, WithCodec[int](c))
	require.NoError(t, err)

	err = a.Set(-1)
	assert.ErrorIs(t, err, ErrEncode)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.Get())
}

func TestAtomExplicitEngineAndEvents(t *testing.T) {
	mem := engine.NewMemory()
	ch := events.NewChannel()

	a, err := NewAtom("theme", "light", WithEngine(mem), WithEvents(ch))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "light"}, mem.Snapshot())

	require.NoError(t, ch.Dispatch(events.Event{Key: "theme", Value: "dark"}))
	assert.Equal(t, "dark", a.Get())
	assert.Equal(t, "light", a.Initial())
}

func TestAtomHydrate(t *testing.T) {
	enginetest.Use(t)
	a, err := NewAtom("test:key", "init", Listen(false))
	require.NoError(t, err)

	require.NoError(t, engine.Default().Set("test:key", "elsewhere"))
	v, err := a.Hydrate()
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", v)
	assert.Equal(t, "elsewhere", a.Get())

	require.NoError(t, engine.Default().Delete("test:key"))
	v, err = a.Hydrate()
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", v)
	assert.Equal(t, "elsewhere", enginetest.Storage(t)["test:key"], "current value is written back")
}
