package orchestrator

import (
	"fmt"

	"github.com/zombienet-go/zombienet/internal/config"
	"github.com/zombienet-go/zombienet/internal/keys"
	"github.com/zombienet-go/zombienet/internal/netspec"
	"github.com/zombienet-go/zombienet/internal/portalloc"
	"github.com/zombienet-go/zombienet/internal/zerr"
)

// Resolve turns a declarative NetworkConfig into a fully-resolved
// NetworkSpec: chain defaults merged into every node, ports reserved,
// identities and session keys derived (spec.md §4.7 step 1).
func Resolve(cfg *config.NetworkConfig) (*netspec.NetworkSpec, error) {
	if cfg.Relaychain == nil {
		return nil, zerr.New(zerr.Config, "network config has no relaychain", nil)
	}
	if len(cfg.Relaychain.Nodes) == 0 {
		return nil, zerr.New(zerr.Config, "relaychain has no nodes", nil)
	}

	alloc := portalloc.New()
	names := map[string]bool{}

	relay := netspec.RelaychainSpec{
		ChainName:      cfg.Relaychain.Chain,
		DefaultCommand: cfg.Relaychain.DefaultCommand,
		DefaultImage:   cfg.Relaychain.DefaultImage,
	}
	for _, nc := range cfg.Relaychain.Nodes {
		node, err := resolveNode(alloc, nc, relay.DefaultCommand, relay.DefaultImage, false, names)
		if err != nil {
			return nil, err
		}
		relay.Nodes = append(relay.Nodes, node)
	}

	spec := &netspec.NetworkSpec{
		Relaychain: relay,
		GlobalSettings: netspec.GlobalSettings{
			BaseDir:             cfg.GlobalSettings.BaseDir,
			BootnodeAddresses:   cfg.GlobalSettings.BootnodeAddresses,
			LocalIP:             cfg.GlobalSettings.LocalIP,
			NetworkSpawnTimeout: cfg.GlobalSettings.NetworkSpawnTimeout,
			NodeSpawnTimeout:    cfg.GlobalSettings.NodeSpawnTimeout,
			TearDownOnFailure:   cfg.GlobalSettings.TearDownOnFailure,
		},
	}

	for _, hc := range cfg.HrmpChannels {
		spec.HrmpChannels = append(spec.HrmpChannels, netspec.HrmpChannelConfig{
			Sender:         hc.Sender,
			Recipient:      hc.Recipient,
			MaxCapacity:    hc.MaxCapacity,
			MaxMessageSize: hc.MaxMessageSize,
		})
	}

	for _, pc := range cfg.Parachains {
		if len(pc.Collators) == 0 {
			return nil, zerr.New(zerr.Config, fmt.Sprintf("parachain %d has no collators", pc.ID), nil)
		}

		// A parachain's config has no default_command/default_image of
		// its own (unlike the relaychain); its first collator's binary
		// doubles as the genesis-artifact generator when no explicit
		// path or generator command is configured, matching the
		// generator fields' path-over-command precedence.
		defaultCommand := pc.Collators[0].Command
		defaultImage := pc.Collators[0].Image

		para := &netspec.ParachainSpec{
			ID:                    pc.ID,
			IsCumulusBased:        pc.IsCumulusBased,
			AsParachain:           true,
			ChainName:             pc.Chain,
			DefaultCommand:        defaultCommand,
			DefaultImage:          defaultImage,
			GenesisStatePath:      pc.GenesisStatePath,
			GenesisStateGenerator: pc.GenesisStateGenerator,
			GenesisWasmPath:       pc.GenesisWasmPath,
			GenesisWasmGenerator:  pc.GenesisWasmGenerator,
		}
		if para.GenesisStatePath == "" && para.GenesisStateGenerator == "" {
			para.GenesisStateGenerator = defaultCommand
		}
		if para.GenesisWasmPath == "" && para.GenesisWasmGenerator == "" {
			para.GenesisWasmGenerator = defaultCommand
		}

		for _, nc := range pc.Collators {
			node, err := resolveNode(alloc, nc, defaultCommand, defaultImage, pc.IsCumulusBased, names)
			if err != nil {
				return nil, err
			}
			para.Collators = append(para.Collators, node)
		}

		spec.Parachains = append(spec.Parachains, para)
	}

	return spec, nil
}

// ResolveNode resolves a single node config against a chain's defaults,
// reserving its ports on the host. Exported for callers adding a node to an
// already-running network (pkg/zombie's AddNode/AddCollator), where there is
// no whole-config Resolve pass to fold it into.
func ResolveNode(defaultCommand, defaultImage string, nc config.NodeConfig) (*netspec.NodeSpec, error) {
	return resolveNode(portalloc.New(), nc, defaultCommand, defaultImage, false, map[string]bool{})
}

// ResolveCollator is ResolveNode for a parachain's collator, additionally
// reserving the embedded relay full-node's p2p port when the parachain is
// cumulus-based.
func ResolveCollator(defaultCommand, defaultImage string, nc config.NodeConfig, isCumulusBased bool) (*netspec.NodeSpec, error) {
	return resolveNode(portalloc.New(), nc, defaultCommand, defaultImage, isCumulusBased, map[string]bool{})
}

func resolveNode(alloc *portalloc.Allocator, nc config.NodeConfig, defaultCommand, defaultImage string, isCumulusCollator bool, names map[string]bool) (*netspec.NodeSpec, error) {
	if nc.Name == "" {
		return nil, zerr.New(zerr.Config, "node has no name", nil)
	}
	if names[nc.Name] {
		return nil, zerr.DuplicatedNodeName(nc.Name)
	}
	names[nc.Name] = true

	command := nc.Command
	if command == "" {
		command = defaultCommand
	}
	if command == "" {
		return nil, zerr.New(zerr.Config, fmt.Sprintf("node %q has no command and no chain default", nc.Name), nil)
	}
	image := nc.Image
	if image == "" {
		image = defaultImage
	}

	identity, err := keys.GenerateNodeIdentity(nc.Name)
	if err != nil {
		return nil, zerr.New(zerr.Config, fmt.Sprintf("deriving identity for node %q", nc.Name), err)
	}
	seed := keys.SeedForNode(nc.Name)
	accounts, err := keys.GenerateNodeKeys(seed)
	if err != nil {
		return nil, zerr.New(zerr.Config, fmt.Sprintf("deriving keys for node %q", nc.Name), err)
	}

	ws, err := alloc.Reserve(nc.WSPort)
	if err != nil {
		return nil, zerr.New(zerr.Config, fmt.Sprintf("reserving ws port for node %q", nc.Name), err)
	}
	rpc, err := alloc.Reserve(nc.RPCPort)
	if err != nil {
		return nil, zerr.New(zerr.Config, fmt.Sprintf("reserving rpc port for node %q", nc.Name), err)
	}
	prom, err := alloc.Reserve(nc.PrometheusPort)
	if err != nil {
		return nil, zerr.New(zerr.Config, fmt.Sprintf("reserving prometheus port for node %q", nc.Name), err)
	}
	p2p, err := alloc.Reserve(nc.P2PPort)
	if err != nil {
		return nil, zerr.New(zerr.Config, fmt.Sprintf("reserving p2p port for node %q", nc.Name), err)
	}

	node := &netspec.NodeSpec{
		Name:               nc.Name,
		Image:              image,
		Command:            command,
		Args:               nc.Args,
		IsValidator:        nc.IsValidator,
		IsInvulnerable:     nc.IsInvulnerable,
		IsBootnode:         nc.IsBootnode,
		InitialBalance:     nc.InitialBalance,
		Env:                nc.Env,
		DesiredWS:          nc.WSPort,
		DesiredRPC:         nc.RPCPort,
		DesiredProm:        nc.PrometheusPort,
		DesiredP2P:         nc.P2PPort,
		KeystoreKeyTypes:   nc.KeystoreKeyTypes,
		NodeKeyHex:         identity.NodeKeyHex,
		PeerID:             identity.PeerID,
		Seed:               seed,
		Accounts:           accounts,
		Ports:              netspec.NodePorts{WS: ws, RPC: rpc, Prometheus: prom, P2P: p2p},
		BootnodesAddresses: nc.BootnodesAddresses,
	}

	if isCumulusCollator {
		fullP2P, err := alloc.Reserve(nil)
		if err != nil {
			return nil, zerr.New(zerr.Config, fmt.Sprintf("reserving full-node p2p port for node %q", nc.Name), err)
		}
		node.FullP2PPort = fullP2P
	}

	return node, nil
}
