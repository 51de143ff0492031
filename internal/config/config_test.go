package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/nanostore/internal/errors"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, EngineFile, cfg.Engine.Kind)
	assert.Empty(t, cfg.Engine.Path)
	assert.Equal(t, DefaultRelayAddr, cfg.Relay.Addr)
	assert.Equal(t, "nanostore", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())

	d, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, d)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), `{
		"engine": {"kind": "sqlite", "path": "state.db", "namespace": "app:", "instrument": true},
		"relay": {"addr": ":9000", "pollInterval": "1s"},
		"log": {"level": "debug", "format": "json"}
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, EngineSQLite, cfg.Engine.Kind)
	assert.Equal(t, "state.db", cfg.Engine.Path)
	assert.Equal(t, "app:", cfg.Engine.Namespace)
	assert.True(t, cfg.Engine.Instrument)
	assert.Equal(t, ":9000", cfg.Relay.Addr)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.Path())

	d, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, YAMLConfigFileName), `
engine:
  kind: s3
  bucket: prefs
  prefix: users/
  region: eu-west-1
  endpoint: http://localhost:9000
  pathStyle: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, EngineS3, cfg.Engine.Kind)
	assert.Equal(t, "prefs", cfg.Engine.Bucket)
	assert.Equal(t, "users/", cfg.Engine.Prefix)
	assert.True(t, cfg.Engine.PathStyle)
	assert.Empty(t, cfg.Engine.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, EngineFile, cfg.Engine.Kind)
	assert.Equal(t, DefaultPath, cfg.Engine.Path)
	assert.Empty(t, cfg.Path())
}

func TestSQLiteDefaultPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), `{"engine": {"kind": "sqlite"}}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ".nanostore/state.db", cfg.Engine.Path)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.New("N401"))
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	writeFile(t, path, `{"engine": `)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.New("N402"))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NANOSTORE_ENGINE", "memory")
	t.Setenv("NANOSTORE_NAMESPACE", "env:")
	t.Setenv("NANOSTORE_LOG_LEVEL", "warn")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), `{"engine": {"kind": "file", "namespace": "file:"}}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, EngineMemory, cfg.Engine.Kind)
	assert.Equal(t, "env:", cfg.Engine.Namespace)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "NANOSTORE_RELAY_URL=ws://relay:7070/ws\n")
	t.Cleanup(func() { os.Unsetenv("NANOSTORE_RELAY_URL") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ws://relay:7070/ws", cfg.Relay.URL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Engine.Kind = "redis" }},
		{"s3 without bucket", func(c *Config) { c.Engine.Kind = EngineS3 }},
		{"bad poll interval", func(c *Config) { c.Relay.PollInterval = "soon" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.New("N402"))
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "theme")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"theme"`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
