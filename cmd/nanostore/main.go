// Command nanostore inspects and serves nanostore backends.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/nanostore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "nanostore",
		Short: "Inspect and relay persistent store backends",
		Long: `nanostore works with the key-value backends behind persistent stores.

Read and write keys directly, run the WebSocket relay that carries
changes between processes, or watch changes as they happen.

Configuration is read from nanostore.json or nanostore.yaml in the
current directory (or --config), then NANOSTORE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.format != formatText && a.format != formatJSON {
				return fmt.Errorf("unknown format %q (use text or json)", a.format)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&a.format, "format", formatText, "Output format: text or json")

	rootCmd.AddCommand(
		getCmd(a),
		setCmd(a),
		delCmd(a),
		keysCmd(a),
		relayCmd(a),
		watchCmd(a),
		versionCmd(a),
	)

	return rootCmd
}
