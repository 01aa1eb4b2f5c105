// Package zombie is the public entry point: spawn a network from a
// configuration, or attach to one still running from an earlier spawn,
// without the caller ever touching internal/orchestrator or internal/provider
// directly.
package zombie

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zombienet-go/zombienet/internal/config"
	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/lockfile"
	"github.com/zombienet-go/zombienet/internal/metrics"
	"github.com/zombienet-go/zombienet/internal/netspec"
	"github.com/zombienet-go/zombienet/internal/orchestrator"
	"github.com/zombienet-go/zombienet/internal/output"
	"github.com/zombienet-go/zombienet/internal/provider"
	"github.com/zombienet-go/zombienet/internal/provider/container"
	"github.com/zombienet-go/zombienet/internal/provider/native"
)

// Network is a running network: the relay chain plus any parachains, every
// node already spawned and ready-checked. It wraps the resolved plan and
// the underlying orchestrator run so callers never need the internal
// packages directly.
type Network struct {
	orc    *orchestrator.Network
	logger *output.Logger
}

// RunningNode is one supervised node belonging to a Network, pairing its
// resolved identity (ports, peer id) with the live handle that can send
// files, run commands, and be paused, resumed, or destroyed.
type RunningNode struct {
	spec *netspec.NodeSpec
	node provider.Node
}

func namespaceName() string {
	return "zombie-" + uuid.New().String()[:8]
}

// SpawnNative resolves cfg and spawns every node as a native OS process
// under a freshly created base directory (cfg.GlobalSettings.BaseDir if
// set, otherwise /tmp/zombie-<id>, named after the generated namespace).
func SpawnNative(ctx context.Context, cfg *config.NetworkConfig, logger *output.Logger) (*Network, error) {
	if logger == nil {
		logger = output.New()
	}
	name := namespaceName()
	baseDir := resolveBaseDir(cfg, name)
	cfg.GlobalSettings.BaseDir = baseDir

	ns, err := native.New(name, baseDir, logger)
	if err != nil {
		return nil, err
	}
	scoped := fs.New(fs.NewLocal(), baseDir)

	orc, err := orchestrator.New(ctx, ns, scoped, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Network{orc: orc, logger: logger}, nil
}

// SpawnDocker resolves cfg and spawns every node as a container under a
// fresh Docker namespace, dialing the daemon from the standard environment
// (DOCKER_HOST and friends). podman should be set when the target runtime
// is Podman rather than Docker.
func SpawnDocker(ctx context.Context, cfg *config.NetworkConfig, logger *output.Logger, podman bool) (*Network, error) {
	if logger == nil {
		logger = output.New()
	}
	name := namespaceName()
	baseDir := resolveBaseDir(cfg, name)
	cfg.GlobalSettings.BaseDir = baseDir

	ns, err := container.NewFromEnv(ctx, name, logger, podman)
	if err != nil {
		return nil, err
	}
	scoped := fs.New(fs.NewLocal(), baseDir)

	orc, err := orchestrator.New(ctx, ns, scoped, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Network{orc: orc, logger: logger}, nil
}

// AttachNative reconstructs a Network previously spawned with SpawnNative
// from the lockfile left under baseDir, without starting anything: every
// node is re-registered against its recorded PID.
func AttachNative(ctx context.Context, baseDir string, logger *output.Logger) (*Network, error) {
	if logger == nil {
		logger = output.New()
	}
	doc, err := lockfile.Read(baseDir)
	if err != nil {
		return nil, err
	}
	ns, err := native.New(doc.Namespace, baseDir, logger)
	if err != nil {
		return nil, err
	}
	scoped := fs.New(fs.NewLocal(), baseDir)

	orc, err := orchestrator.AttachToLive(ctx, ns, scoped, baseDir, logger)
	if err != nil {
		return nil, err
	}
	return &Network{orc: orc, logger: logger}, nil
}

// AttachDocker reconstructs a Network previously spawned with SpawnDocker
// from the lockfile left under baseDir, reattaching to each node's
// recorded container id rather than starting new containers.
func AttachDocker(ctx context.Context, baseDir string, logger *output.Logger, podman bool) (*Network, error) {
	if logger == nil {
		logger = output.New()
	}
	doc, err := lockfile.Read(baseDir)
	if err != nil {
		return nil, err
	}
	ns, err := container.NewFromEnv(ctx, doc.Namespace, logger, podman)
	if err != nil {
		return nil, err
	}
	scoped := fs.New(fs.NewLocal(), baseDir)

	orc, err := orchestrator.AttachToLive(ctx, ns, scoped, baseDir, logger)
	if err != nil {
		return nil, err
	}
	return &Network{orc: orc, logger: logger}, nil
}

func resolveBaseDir(cfg *config.NetworkConfig, name string) string {
	if cfg.GlobalSettings.BaseDir != "" {
		return cfg.GlobalSettings.BaseDir
	}
	return fmt.Sprintf("/tmp/%s", name)
}

// Node looks up a running node by name.
func (n *Network) Node(name string) (*RunningNode, bool) {
	spawned, ok := n.orc.Node(name)
	if !ok {
		return nil, false
	}
	for _, s := range n.orc.Spec().AllNodes() {
		if s.Name == name {
			return &RunningNode{spec: s, node: spawned}, true
		}
	}
	return nil, false
}

// Nodes returns every node currently part of the network, relay nodes
// first, in declaration order.
func (n *Network) Nodes() []*RunningNode {
	all := n.orc.Spec().AllNodes()
	out := make([]*RunningNode, 0, len(all))
	for _, s := range all {
		if spawned, ok := n.orc.Node(s.Name); ok {
			out = append(out, &RunningNode{spec: s, node: spawned})
		}
	}
	return out
}

// AddNode resolves a single additional relay chain node config against the
// running network's relay chain defaults and spawns it into the network.
func (n *Network) AddNode(ctx context.Context, cfg config.NodeConfig) (*RunningNode, error) {
	spec := n.orc.Spec()
	node, err := orchestrator.ResolveNode(spec.Relaychain.DefaultCommand, spec.Relaychain.DefaultImage, cfg)
	if err != nil {
		return nil, err
	}
	if err := n.orc.AddNode(ctx, node); err != nil {
		return nil, err
	}
	spawned, _ := n.orc.Node(node.Name)
	return &RunningNode{spec: node, node: spawned}, nil
}

// AddCollator resolves a single additional collator for an existing
// parachain and spawns it into the running network.
func (n *Network) AddCollator(ctx context.Context, cfg config.NodeConfig, paraID uint32) (*RunningNode, error) {
	var para *netspec.ParachainSpec
	for _, p := range n.orc.Spec().Parachains {
		if p.ID == paraID {
			para = p
			break
		}
	}
	if para == nil {
		return nil, fmt.Errorf("unknown parachain id %d", paraID)
	}
	node, err := orchestrator.ResolveCollator(para.DefaultCommand, para.DefaultImage, cfg, para.IsCumulusBased)
	if err != nil {
		return nil, err
	}
	if err := n.orc.AddCollator(ctx, node, paraID); err != nil {
		return nil, err
	}
	spawned, _ := n.orc.Node(node.Name)
	return &RunningNode{spec: node, node: spawned}, nil
}

// Destroy tears down every node and removes the underlying namespace.
func (n *Network) Destroy(ctx context.Context) error {
	return n.orc.Destroy(ctx)
}

// BaseDir is the directory the network's lockfile and generated artifacts
// live under.
func (n *Network) BaseDir() string {
	return n.orc.Spec().GlobalSettings.BaseDir
}

// Name returns the node's configured name.
func (rn *RunningNode) Name() string { return rn.spec.Name }

// WSPort is the host port the node's WS-RPC endpoint is bound to.
func (rn *RunningNode) WSPort() int {
	if rn.spec.Ports.WS == nil {
		return 0
	}
	return rn.spec.Ports.WS.Port()
}

// RPCPort is the host port the node's HTTP-RPC endpoint is bound to.
func (rn *RunningNode) RPCPort() int {
	if rn.spec.Ports.RPC == nil {
		return 0
	}
	return rn.spec.Ports.RPC.Port()
}

// PrometheusPort is the host port the node's metrics endpoint is bound to.
func (rn *RunningNode) PrometheusPort() int {
	if rn.spec.Ports.Prometheus == nil {
		return 0
	}
	return rn.spec.Ports.Prometheus.Port()
}

// P2PPort is the host port the node's libp2p transport is bound to.
func (rn *RunningNode) P2PPort() int {
	if rn.spec.Ports.P2P == nil {
		return 0
	}
	return rn.spec.Ports.P2P.Port()
}

// PeerID is the node's derived libp2p peer id.
func (rn *RunningNode) PeerID() string { return rn.spec.PeerID }

// IP returns the node's dialable address: loopback for a native node, the
// container's address for a containerized one.
func (rn *RunningNode) IP(ctx context.Context) (string, error) {
	return rn.node.IP(ctx)
}

// Metrics scrapes and parses the node's Prometheus endpoint.
func (rn *RunningNode) Metrics(ctx context.Context) (metrics.Map, error) {
	result, err := rn.node.RunCommand(ctx, "curl", []string{"-sf", fmt.Sprintf("http://127.0.0.1:%d/metrics", rn.PrometheusPort())}, nil)
	if err != nil {
		return nil, err
	}
	return metrics.Parse(result.Stdout)
}

// RunCommand runs program on the node with the given arguments and
// environment.
func (rn *RunningNode) RunCommand(ctx context.Context, program string, args []string, env map[string]string) (provider.CommandResult, error) {
	return rn.node.RunCommand(ctx, program, args, env)
}

// Logs returns the node's captured stdout/stderr.
func (rn *RunningNode) Logs(ctx context.Context) (string, error) {
	return rn.node.Logs(ctx)
}

// Pause suspends the node without tearing it down.
func (rn *RunningNode) Pause(ctx context.Context) error { return rn.node.Pause(ctx) }

// Resume resumes a previously paused node.
func (rn *RunningNode) Resume(ctx context.Context) error { return rn.node.Resume(ctx) }

// Destroy stops and removes the node.
func (rn *RunningNode) Destroy(ctx context.Context) error { return rn.node.Destroy(ctx) }
