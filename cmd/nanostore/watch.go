package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nanostore/internal/config"
	"github.com/vango-dev/nanostore/pkg/engine"
	"github.com/vango-dev/nanostore/pkg/events"
	"github.com/vango-dev/nanostore/pkg/relay"
)

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [PREFIX]",
		Short: "Print changes made by other processes",
		Long: `Print changes as they happen, optionally only for keys starting with PREFIX.

Changes come from the relay when relay.url is configured, otherwise from
the SQLite change log. Other engines cannot be watched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config(cmd)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := &eventPrinter{w: cmd.OutOrStdout(), json: a.format == formatJSON, prefix: prefix}

			if cfg.Relay.URL != "" {
				client, err := relay.Dial(ctx, cfg.Relay.URL,
					relay.WithClientLogger(a.logger),
					relay.WithDispatcher(p.print))
				if err != nil {
					return err
				}
				defer client.Close()
				a.logger.Info("watching relay", "url", cfg.Relay.URL, "origin", client.Origin())

				select {
				case <-ctx.Done():
				case <-client.Done():
				}
				return nil
			}

			if cfg.Engine.Kind != config.EngineSQLite {
				return fmt.Errorf("cannot watch the %s engine: configure relay.url or use the sqlite engine", cfg.Engine.Kind)
			}

			h, err := engine.Open(cfg.Engine, engine.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer h.Close()

			interval, _ := cfg.PollInterval()
			a.logger.Info("watching sqlite change log", "path", cfg.Engine.Path, "interval", interval)
			err = h.SQLite().Poll(ctx, interval, engine.MapEvents(engine.Namespace(cfg.Engine.Namespace), p.print))
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

// eventPrinter writes one line per event.
type eventPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	json   bool
	prefix string
}

func (p *eventPrinter) print(ev events.Event) error {
	if !ev.Cleared() && !strings.HasPrefix(ev.Key, p.prefix) {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		data, err := json.Marshal(relay.MessageOf(ev))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}

	var err error
	switch {
	case ev.Cleared():
		_, err = fmt.Fprintln(p.w, "clear")
	case ev.Deleted:
		_, err = fmt.Fprintf(p.w, "del %s\n", ev.Key)
	default:
		_, err = fmt.Fprintf(p.w, "set %s %s\n", ev.Key, ev.Value)
	}
	return err
}
