package enginetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/nanostore/pkg/engine"
)

func TestUseIsolatesKeys(t *testing.T) {
	mem := Use(t)

	require.NoError(t, engine.Default().Set("theme", "dark"))
	assert.Equal(t, map[string]string{"TestUseIsolatesKeys:theme": "dark"}, mem.Snapshot())
	assert.Equal(t, map[string]string{"theme": "dark"}, Storage(t))
}

func TestUseSubtest(t *testing.T) {
	t.Run("child", func(t *testing.T) {
		Use(t)
		require.NoError(t, engine.SetTestKey("lang", "en"))
		assert.Equal(t, "TestUseSubtest:child:", Namespace(t))
		assert.Equal(t, map[string]string{"lang": "en"}, Storage(t))
	})

	assert.Nil(t, engine.TestStorage(), "cleanup removes the test engine")
}
