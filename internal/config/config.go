package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/nanostore/internal/errors"
)

const (
	// ConfigFileName is the JSON configuration file name.
	ConfigFileName = "nanostore.json"

	// YAMLConfigFileName is the YAML configuration file name.
	YAMLConfigFileName = "nanostore.yaml"

	// DefaultEngine is the engine kind used when none is configured.
	DefaultEngine = "file"

	// DefaultPath is the default file engine document.
	DefaultPath = ".nanostore/state.json"

	// DefaultRelayAddr is the default relay listen address.
	DefaultRelayAddr = ":7070"

	// DefaultPollInterval is the default SQLite change-log poll interval.
	DefaultPollInterval = 500 * time.Millisecond
)

// Engine kinds.
const (
	EngineMemory = "memory"
	EngineFile   = "file"
	EngineSQLite = "sqlite"
	EngineS3     = "s3"
)

// Config represents the complete nanostore configuration.
type Config struct {
	// Engine selects and configures the storage backend.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Relay configures the cross-process event relay.
	Relay RelayConfig `json:"relay" yaml:"relay"`

	// Metrics configures Prometheus collectors.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Log configures the slog logger.
	Log LogConfig `json:"log" yaml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// EngineConfig configures the storage engine.
type EngineConfig struct {
	// Kind is one of memory, file, sqlite, s3.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Path is the file document or SQLite database path.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Namespace prefixes every key written by this process.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Instrument wraps the engine with metrics and tracing.
	Instrument bool `json:"instrument,omitempty" yaml:"instrument,omitempty"`

	// Bucket is the S3 bucket.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is the S3 object key prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region is the S3 region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (e.g. a MinIO URL).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// PathStyle forces path-style S3 addressing.
	PathStyle bool `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// RelayConfig configures the event relay.
type RelayConfig struct {
	// Addr is the address the relay hub listens on.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// URL is the WebSocket URL clients dial.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// PollInterval is the SQLite change-log poll interval (e.g. "500ms").
	PollInterval string `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "nanostore").
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a Config with default values. The engine path is filled in
// by Load once the engine kind is known.
func New() *Config {
	return &Config{
		Engine: EngineConfig{
			Kind: DefaultEngine,
		},
		Relay: RelayConfig{
			Addr:         DefaultRelayAddr,
			PollInterval: DefaultPollInterval.String(),
		},
		Metrics: MetricsConfig{
			Namespace: "nanostore",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from dir. It looks for nanostore.json, then
// nanostore.yaml; when neither exists the defaults are used. Environment
// overrides are applied last.
func Load(dir string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	cfg := New()
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension (.json, .yaml, .yml).
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("N401").
				WithDetail(path).
				WithSuggestion("Create nanostore.json or pass --config")
		}
		return nil, errors.New("N402").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("N402").
			WithDetail("Failed to parse " + filepath.Base(path)).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyEnv overrides fields from NANOSTORE_* environment variables.
func (c *Config) applyEnv() {
	env := map[string]*string{
		"NANOSTORE_ENGINE":      &c.Engine.Kind,
		"NANOSTORE_PATH":        &c.Engine.Path,
		"NANOSTORE_NAMESPACE":   &c.Engine.Namespace,
		"NANOSTORE_S3_BUCKET":   &c.Engine.Bucket,
		"NANOSTORE_S3_PREFIX":   &c.Engine.Prefix,
		"NANOSTORE_S3_REGION":   &c.Engine.Region,
		"NANOSTORE_S3_ENDPOINT": &c.Engine.Endpoint,
		"NANOSTORE_RELAY_ADDR":  &c.Relay.Addr,
		"NANOSTORE_RELAY_URL":   &c.Relay.URL,
		"NANOSTORE_LOG_LEVEL":   &c.Log.Level,
		"NANOSTORE_LOG_FORMAT":  &c.Log.Format,
	}
	for name, field := range env {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Engine.Kind == "" {
		c.Engine.Kind = DefaultEngine
	}
	if c.Engine.Path == "" && (c.Engine.Kind == EngineFile || c.Engine.Kind == EngineSQLite) {
		if c.Engine.Kind == EngineSQLite {
			c.Engine.Path = ".nanostore/state.db"
		} else {
			c.Engine.Path = DefaultPath
		}
	}
	if c.Relay.Addr == "" {
		c.Relay.Addr = DefaultRelayAddr
	}
	if c.Relay.PollInterval == "" {
		c.Relay.PollInterval = DefaultPollInterval.String()
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "nanostore"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Engine.Kind {
	case EngineMemory, EngineFile, EngineSQLite:
	case EngineS3:
		if c.Engine.Bucket == "" {
			return errors.New("N402").WithDetail("engine.bucket is required for the s3 engine")
		}
	default:
		return errors.New("N402").WithDetailf("unknown engine kind %q", c.Engine.Kind).
			WithSuggestion("Use one of memory, file, sqlite, s3")
	}

	if _, err := c.PollInterval(); err != nil {
		return errors.New("N402").WithDetailf("relay.pollInterval %q", c.Relay.PollInterval).Wrap(err)
	}

	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		return errors.New("N402").WithDetailf("unknown log level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("N402").WithDetailf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// PollInterval returns the parsed SQLite poll interval.
func (c *Config) PollInterval() (time.Duration, error) {
	return time.ParseDuration(c.Relay.PollInterval)
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Logger builds a slog.Logger writing to w according to the log settings.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, ok := levels[strings.ToLower(c.Log.Level)]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
