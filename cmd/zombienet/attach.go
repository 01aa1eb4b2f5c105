package main

import (
	"context"

	"github.com/spf13/cobra"
)

var attachPodman bool

// NewAttachCmd creates the attach command.
func NewAttachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach <base-dir>",
		Short: "Reattach to a network spawned by an earlier run",
		Long: `Reconstruct a running network from the lockfile left under base-dir by
an earlier spawn, without starting anything: every node is re-registered
against its recorded PID or container id.`,
		Args: cobra.ExactArgs(1),
		RunE: runAttach,
	}

	cmd.Flags().BoolVar(&attachPodman, "podman", false, "Treat the docker provider's daemon as Podman")

	return cmd
}

func runAttach(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	baseDir := args[0]

	net, err := attachByRuntime(ctx, baseDir, attachPodman)
	if err != nil {
		return err
	}

	logger.Success("Reattached to network under %s", net.BaseDir())
	printNodeTable(net)
	return nil
}
