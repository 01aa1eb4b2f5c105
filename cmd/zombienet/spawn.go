package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zombienet-go/zombienet/internal/config"
	"github.com/zombienet-go/zombienet/pkg/zombie"
)

var (
	spawnProvider string
	spawnPodman   bool
)

// NewSpawnCmd creates the spawn command.
func NewSpawnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spawn <config.toml|config.json>",
		Short: "Spawn a network from a configuration file",
		Long: `Resolve the relay chain and every parachain declared in the given
configuration file, build their genesis artifacts, and spawn every node.
The command blocks until every node has passed its ready check.`,
		Args: cobra.ExactArgs(1),
		RunE: runSpawn,
	}

	cmd.Flags().StringVar(&spawnProvider, "provider", "native", `Where to spawn nodes: "native" or "docker"`)
	cmd.Flags().BoolVar(&spawnPodman, "podman", false, "Treat the docker provider's daemon as Podman")

	return cmd
}

func runSpawn(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.NewLoader().Load(args[0])
	if err != nil {
		return err
	}

	var net *zombie.Network
	switch spawnProvider {
	case "native":
		net, err = zombie.SpawnNative(ctx, cfg, logger)
	case "docker":
		net, err = zombie.SpawnDocker(ctx, cfg, logger, spawnPodman)
	default:
		return fmt.Errorf("unknown provider %q, want \"native\" or \"docker\"", spawnProvider)
	}
	if err != nil {
		return err
	}

	logger.Success("Network spawned under %s", net.BaseDir())
	printNodeTable(net)
	return nil
}

func printNodeTable(net *zombie.Network) {
	for _, n := range net.Nodes() {
		fmt.Printf("  %-16s ws=%-6d rpc=%-6d prometheus=%-6d p2p=%-6d peer=%s\n",
			n.Name(), n.WSPort(), n.RPCPort(), n.PrometheusPort(), n.P2PPort(), n.PeerID())
	}
}
