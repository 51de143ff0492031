package persistent

import (
	"log/slog"

	"github.com/vango-dev/nanostore/internal/errors"
	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
)

var (
	// ErrDecode matches failures decoding a stored value.
	ErrDecode = errors.New("N101")

	// ErrEncode matches failures encoding a value for storage.
	ErrEncode = errors.New("N102")

	// ErrCodec matches a missing or mismatched codec.
	ErrCodec = errors.New("N103")
)

// Metadata describes how a store is persisted. Exactly one of Key and
// Prefix is set.
type Metadata struct {
	// Key is the backing key of an atom.
	Key string

	// Prefix is the key prefix shared by a map's fields.
	Prefix string

	// Listen reports whether changes from other processes are applied.
	Listen bool
}

// Persistent is implemented by stores that carry persistence metadata.
type Persistent interface {
	Metadata() Metadata
}

// Hydrator is implemented by stores that can refresh themselves from their
// engine. Hydrate returns the refreshed value.
type Hydrator[T any] interface {
	Hydrate() (T, error)
}

// Option configures a persistent store.
type Option func(*options)

type options struct {
	listen bool
	codec  any
	engine engine.Engine
	events *events.Channel
	logger *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{listen: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = engine.Default()
	}
	if o.events == nil {
		o.events = events.Default()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Listen sets whether the store applies changes made by other processes.
// Default: true.
func Listen(enabled bool) Option {
	return func(o *options) {
		o.listen = enabled
	}
}

// WithCodec sets the codec. Required for stores whose values are not
// string or *string.
func WithCodec[T any](c Codec[T]) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithEngine sets the engine. Default: engine.Default() at construction.
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithEvents sets the channel remote changes arrive on.
// Default: events.Default() at construction.
func WithEvents(c *events.Channel) Option {
	return func(o *options) {
		o.events = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func decodeError(key string, err error) error {
	return errors.New("N101").WithDetailf("key %q", key).Wrap(err)
}

func encodeError(key string, err error) error {
	return errors.New("N102").WithDetailf("key %q", key).Wrap(err)
}
