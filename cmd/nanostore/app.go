package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nanostore/internal/config"
	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
	"github.com/vango-dev/nanostore/pkg/relay"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// app carries the state shared by every command.
type app struct {
	configPath string
	format     string

	cfg    *config.Config
	logger *slog.Logger
}

// config loads and validates configuration once per invocation.
func (a *app) config(cmd *cobra.Command) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	return cfg, nil
}

// openEngine opens the configured engine. When a relay URL is configured
// and publish is set, writes are also broadcast to the relay.
func (a *app) openEngine(cmd *cobra.Command, publish bool) (engine.Engine, func() error, error) {
	cfg, err := a.config(cmd)
	if err != nil {
		return nil, nil, err
	}

	h, err := engine.Open(cfg.Engine, engine.WithLogger(a.logger))
	if err != nil {
		return nil, nil, err
	}
	if !publish || cfg.Relay.URL == "" {
		return h.Engine, h.Close, nil
	}

	// One-shot commands only publish; incoming events are ignored.
	client, err := relay.Dial(cmdContext(cmd), cfg.Relay.URL,
		relay.WithClientLogger(a.logger),
		relay.WithDispatcher(func(events.Event) error { return nil }))
	if err != nil {
		h.Close()
		return nil, nil, err
	}
	closeAll := func() error {
		client.Close()
		return h.Close()
	}
	return relay.Broadcast(h.Engine, client, relay.WithBroadcastLogger(a.logger)), closeAll, nil
}

// print writes v as JSON or text depending on --format.
func (a *app) print(w io.Writer, v any, text string) error {
	if a.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
