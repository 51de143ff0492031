package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nanostore/pkg/engine"
)

type entry struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := a.openEngine(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			value, ok, err := e.Get(args[0])
			if err != nil {
				return err
			}
			if !ok && a.format == formatText {
				return fmt.Errorf("key %q not found", args[0])
			}
			return a.print(cmd.OutOrStdout(), entry{Key: args[0], Value: value, Found: ok}, value)
		},
	}
}

func setCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE under KEY",
		Long: `Store VALUE under KEY.

The value is written as-is; persistent stores that use a codec expect it
in their encoded form (JSON for structured values). When relay.url is
configured the change is also published to the relay.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := a.openEngine(cmd, true)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := e.Set(args[0], args[1]); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), entry{Key: args[0], Value: args[1], Found: true},
				fmt.Sprintf("set %s", args[0]))
		},
	}
}

func delCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "del KEY",
		Aliases: []string{"delete", "rm"},
		Short:   "Delete KEY",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := a.openEngine(cmd, true)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := e.Delete(args[0]); err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), entry{Key: args[0]},
				fmt.Sprintf("deleted %s", args[0]))
		},
	}
}

func keysCmd(a *app) *cobra.Command {
	var values bool

	cmd := &cobra.Command{
		Use:   "keys [PREFIX]",
		Short: "List stored keys",
		Long:  `List stored keys in sorted order, optionally only those starting with PREFIX.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := a.openEngine(cmd, false)
			if err != nil {
				return err
			}
			defer closeFn()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			keys, err := engine.KeysWithPrefix(e, prefix)
			if err != nil {
				return err
			}
			sort.Strings(keys)

			entries := make([]entry, 0, len(keys))
			lines := make([]string, 0, len(keys))
			for _, k := range keys {
				ent := entry{Key: k, Found: true}
				line := k
				if values {
					v, ok, err := e.Get(k)
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					ent.Value = v
					line = k + "\t" + v
				}
				entries = append(entries, ent)
				lines = append(lines, line)
			}
			return a.print(cmd.OutOrStdout(), entries, strings.Join(lines, "\n"))
		},
	}

	cmd.Flags().BoolVarP(&values, "values", "v", false, "Print values next to keys")

	return cmd
}
