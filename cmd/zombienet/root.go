package main

import (
	"github.com/spf13/cobra"

	"github.com/zombienet-go/zombienet/internal/output"
)

var (
	verbose bool
	noColor bool
)

var logger = output.New()

// NewRootCmd assembles the zombienet CLI: spawn, attach, destroy, version.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zombienet",
		Short: "Spawn and manage ephemeral multi-node blockchain test networks",
		Long: `zombienet spawns a relay chain and any number of parachains, either as
native processes or as Docker containers, from a single TOML or JSON
configuration file, and can reattach to a still-running network later.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
			logger.SetNoColor(noColor)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		NewSpawnCmd(),
		NewAttachCmd(),
		NewDestroyCmd(),
		NewVersionCmd(),
	)

	return cmd
}
