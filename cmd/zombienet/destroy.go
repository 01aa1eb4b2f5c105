package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zombienet-go/zombienet/internal/lockfile"
	"github.com/zombienet-go/zombienet/internal/output"
)

var (
	destroyForce  bool
	destroyPodman bool
)

// NewDestroyCmd creates the destroy command.
func NewDestroyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy <base-dir>",
		Short: "Tear down a running network",
		Long: `Stop every node belonging to the network under base-dir and remove its
namespace. Irreversible; asks for confirmation unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runDestroy,
	}

	cmd.Flags().BoolVarP(&destroyForce, "force", "f", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&destroyPodman, "podman", false, "Treat the docker provider's daemon as Podman")

	return cmd
}

func runDestroy(cmd *cobra.Command, args []string) error {
	baseDir := args[0]

	if !lockfile.Exists(baseDir) {
		return fmt.Errorf("no network found at %s", baseDir)
	}

	if !destroyForce {
		confirmed, err := output.Confirm(fmt.Sprintf("Destroy the network at %s", baseDir))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	ctx := context.Background()
	net, err := attachByRuntime(ctx, baseDir, destroyPodman)
	if err != nil {
		return err
	}
	if err := net.Destroy(ctx); err != nil {
		return err
	}

	logger.Success("Network at %s destroyed.", baseDir)
	return nil
}
