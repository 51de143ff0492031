package relay

import (
	"log/slog"

	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
)

// Publisher sends local changes to other contexts. *Client implements it.
type Publisher interface {
	Publish(events.Event) error
}

// Broadcast wraps e so every successful Set and Delete is published through
// p. A failed publish is logged; the local write still stands.
//
// Wrap the engine the stores write to (after any Remap) so that the relay
// carries logical keys.
func Broadcast(e engine.Engine, p Publisher, opts ...BroadcastOption) engine.Engine {
	b := &broadcaster{Engine: e, pub: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BroadcastOption configures Broadcast.
type BroadcastOption func(*broadcaster)

// WithBroadcastLogger sets the logger publish failures are reported to.
func WithBroadcastLogger(l *slog.Logger) BroadcastOption {
	return func(b *broadcaster) { b.logger = l }
}

type broadcaster struct {
	engine.Engine
	pub    Publisher
	logger *slog.Logger
}

func (b *broadcaster) Set(key, value string) error {
	if err := b.Engine.Set(key, value); err != nil {
		return err
	}
	b.publish(events.Event{Key: key, Value: value})
	return nil
}

func (b *broadcaster) Delete(key string) error {
	if err := b.Engine.Delete(key); err != nil {
		return err
	}
	b.publish(events.Event{Key: key, Deleted: true})
	return nil
}

func (b *broadcaster) publish(ev events.Event) {
	if err := b.pub.Publish(ev); err != nil {
		b.logger.Error("relay publish failed", "key", ev.Key, "error", err)
	}
}

// Unwrap returns the wrapped engine.
func (b *broadcaster) Unwrap() engine.Engine {
	return b.Engine
}
