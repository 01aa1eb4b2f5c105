// Package orchestrator drives the nine-phase sequence spec.md §4.7
// describes: resolve a declarative config into a NetworkSpec, build every
// chain-spec and genesis artifact, spawn relay nodes and parachain
// collators in dependency order, and ready-check each one. Grounded on the
// teacher's internal/daemon/provisioner/orchestrator.go's phase-sequencing
// style: one method per phase, a single struct threading state between
// them, errors short-circuiting the run.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zombienet-go/zombienet/internal/chainspec"
	"github.com/zombienet-go/zombienet/internal/command"
	"github.com/zombienet-go/zombienet/internal/config"
	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/keystore"
	"github.com/zombienet-go/zombienet/internal/lockfile"
	"github.com/zombienet-go/zombienet/internal/metrics"
	"github.com/zombienet-go/zombienet/internal/netspec"
	"github.com/zombienet-go/zombienet/internal/output"
	"github.com/zombienet-go/zombienet/internal/paraartifact"
	"github.com/zombienet-go/zombienet/internal/provider"
	"github.com/zombienet-go/zombienet/internal/zerr"
)

// Network is a running (or attached-to) zombienet run: the resolved spec,
// the provider namespace it's spawned into, every chain-spec built along
// the way, and every node currently tracked.
type Network struct {
	ns      provider.Namespace
	scoped  *fs.ScopedFilesystem
	baseDir string
	logger  *output.Logger

	spec *netspec.NetworkSpec

	relaySpec    *chainspec.ChainSpec
	relayChainID string
	relayRawPath string
	paraSpecs    map[uint32]*chainspec.ChainSpec
	paraRawPaths map[uint32]string

	relayBootnodes map[string][]string // chain name -> accumulated multiaddrs

	lockDoc *lockfile.Document

	mu    sync.RWMutex
	nodes map[string]provider.Node
}

// New runs the full orchestrator driver against cfg and returns the
// resulting Network once every node has passed its ready-check.
func New(ctx context.Context, ns provider.Namespace, scoped *fs.ScopedFilesystem, cfg *config.NetworkConfig, logger *output.Logger) (*Network, error) {
	if logger == nil {
		logger = output.New()
	}

	spec, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}

	net := &Network{
		ns:             ns,
		scoped:         scoped,
		baseDir:        scoped.Base,
		logger:         logger,
		spec:           spec,
		paraSpecs:      map[uint32]*chainspec.ChainSpec{},
		paraRawPaths:   map[uint32]string{},
		relayBootnodes: map[string][]string{},
		nodes:          map[string]provider.Node{},
	}

	runTimeout := time.Duration(spec.GlobalSettings.NetworkSpawnTimeout) * time.Second
	if runTimeout <= 0 {
		runTimeout = 1000 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if err := net.writeLockfile(runCtx); err != nil {
		return nil, err
	}
	if err := net.populateAvailableArgs(runCtx); err != nil {
		return nil, err
	}
	if err := net.buildRelayPlainSpec(runCtx); err != nil {
		return nil, err
	}
	if err := net.buildParachainArtifacts(runCtx); err != nil {
		return nil, err
	}
	if err := net.finishRelaySpec(runCtx); err != nil {
		return nil, err
	}
	if err := net.spawnRelayNodes(runCtx); err != nil {
		return nil, net.teardownOnFailure(ctx, err)
	}
	if err := net.injectRelayBootnodes(runCtx); err != nil {
		return nil, net.teardownOnFailure(ctx, err)
	}
	if err := net.spawnCollators(runCtx); err != nil {
		return nil, net.teardownOnFailure(ctx, err)
	}
	if err := net.readyCheckAll(runCtx); err != nil {
		return nil, net.teardownOnFailure(ctx, err)
	}

	return net, nil
}

func (n *Network) teardownOnFailure(ctx context.Context, cause error) error {
	if n.spec.GlobalSettings.TearDownOnFailure {
		if err := n.ns.Destroy(ctx); err != nil {
			n.logger.Warn("teardown after spawn failure: %v", err)
		}
	}
	return cause
}

// writeLockfile persists the resolved spec, before anything is spawned, so
// a crash mid-run still leaves a recoverable zombie.json (spec.md §4.7
// step 2 / §6).
func (n *Network) writeLockfile(ctx context.Context) error {
	doc := &lockfile.Document{
		Namespace: n.ns.Name(),
		BaseDir:   n.baseDir,
		Network:   n.spec,
		Nodes:     map[string]lockfile.NodeRuntime{},
	}
	n.lockDoc = doc
	return lockfile.Write(n.baseDir, doc)
}

// recordNodeRuntime persists a just-spawned node's runtime identity into
// the lockfile, so a later attach_to_live run can reconstruct it without
// re-spawning (spec.md §6/§8). A no-op when the Network holds no lockfile
// document.
func (n *Network) recordNodeRuntime(node *netspec.NodeSpec, spawned provider.Node) error {
	if n.lockDoc == nil {
		return nil
	}
	runtime := lockfile.NodeRuntime{
		Name:  node.Name,
		State: spawned.State(),
	}
	if node.Ports.WS != nil {
		runtime.WSPort = node.Ports.WS.Port()
	}
	if node.Ports.RPC != nil {
		runtime.RPCPort = node.Ports.RPC.Port()
	}
	if node.Ports.Prometheus != nil {
		runtime.PrometheusPort = node.Ports.Prometheus.Port()
	}
	if node.Ports.P2P != nil {
		runtime.P2PPort = node.Ports.P2P.Port()
	}
	n.lockDoc.Nodes[node.Name] = runtime
	return lockfile.Write(n.baseDir, n.lockDoc)
}

// populateAvailableArgs computes `<cmd> --help` once per distinct
// (image, command) pair and caches it on every node sharing that pair
// (spec.md §4.7 step 3), the one concurrency exception alongside
// paraartifact.BuildPair.
func (n *Network) populateAvailableArgs(ctx context.Context) error {
	type pair struct{ image, command string }

	unique := map[pair]bool{}
	for _, node := range n.spec.AllNodes() {
		unique[pair{node.Image, node.Command}] = true
	}

	var mu sync.Mutex
	outputs := map[pair]string{}

	group, gctx := errgroup.WithContext(ctx)
	for p := range unique {
		p := p
		group.Go(func() error {
			out, err := n.ns.GetNodeAvailableArgs(gctx, p.command, p.image)
			if err != nil {
				return zerr.New(zerr.Generation, fmt.Sprintf("getting available args for %s", p.command), err)
			}
			mu.Lock()
			outputs[p] = out
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, node := range n.spec.AllNodes() {
		node.AvailableArgsOutput = outputs[pair{node.Image, node.Command}]
	}
	return nil
}

// buildRelayPlainSpec builds the relay chain-spec's plain form and reads
// its chain id, which every parachain's customize_para step needs before
// it can build its own raw spec.
func (n *Network) buildRelayPlainSpec(ctx context.Context) error {
	relay := &n.spec.Relaychain
	runner := newNamespaceRunner(n.ns, n.scoped, relay.DefaultImage)

	cs := chainspec.New(relay.ChainName, chainspec.Relay, relay.DefaultCommand).WithChainName(relay.ChainName)
	if err := cs.Build(ctx, runner, n.scoped); err != nil {
		return err
	}

	id, err := cs.ReadChainID(ctx, n.scoped)
	if err != nil {
		return err
	}

	n.relaySpec = cs
	n.relayChainID = id
	return nil
}

// buildParachainArtifacts builds each parachain's chain-spec (plain ->
// customize -> raw) and then its genesis-state/genesis-wasm pair
// (spec.md §4.7 step 4).
func (n *Network) buildParachainArtifacts(ctx context.Context) error {
	for _, para := range n.spec.Parachains {
		name := fmt.Sprintf("%d", para.ID)
		runner := newNamespaceRunner(n.ns, n.scoped, para.DefaultImage)

		cs := chainspec.New(name, chainspec.Para, para.DefaultCommand).WithChainName(para.ChainName)
		if err := cs.Build(ctx, runner, n.scoped); err != nil {
			return err
		}
		if err := cs.CustomizePara(ctx, n.scoped, para, n.relayChainID); err != nil {
			return err
		}
		if err := cs.BuildRaw(ctx, runner, n.baseDir); err != nil {
			return err
		}
		n.paraSpecs[para.ID] = cs
		n.paraRawPaths[para.ID] = cs.RawPath()

		state, wasm, err := paraartifact.BuildPair(ctx, runner, n.scoped, para.ID, cs.RawPath(),
			para.GenesisStatePath, para.GenesisStateGenerator,
			para.GenesisWasmPath, para.GenesisWasmGenerator)
		if err != nil {
			return err
		}
		_ = state
		_ = wasm
	}
	return nil
}

// finishRelaySpec applies the relay customization pipeline (clear,
// balances, authorities, parachain genesis injection) and builds the raw
// form (spec.md §4.7 step 5, continued from buildRelayPlainSpec).
func (n *Network) finishRelaySpec(ctx context.Context) error {
	relay := &n.spec.Relaychain

	paraGenesis := make([]chainspec.ParaGenesisConfig, 0, len(n.spec.Parachains))
	for _, para := range n.spec.Parachains {
		paraGenesis = append(paraGenesis, chainspec.ParaGenesisConfig{
			ID:          para.ID,
			StatePath:   fmt.Sprintf("%d/genesis-state", para.ID),
			WasmPath:    fmt.Sprintf("%d/genesis-wasm", para.ID),
			AsParachain: para.AsParachain,
		})
	}

	if err := n.relaySpec.CustomizeRelay(ctx, n.scoped, relay, paraGenesis); err != nil {
		return err
	}

	runner := newNamespaceRunner(n.ns, n.scoped, relay.DefaultImage)
	if err := n.relaySpec.BuildRaw(ctx, runner, n.baseDir); err != nil {
		return err
	}
	n.relayRawPath = n.relaySpec.RawPath()
	return nil
}

func (n *Network) commandOptions(bootnodeAddr []string) command.Options {
	return command.Options{
		RelayChainName:       n.spec.Relaychain.ChainName,
		CfgPath:              "/cfg",
		DataPath:             "/data",
		RelayDataPath:        "/relay-data",
		UseWrapper:           n.ns.Capabilities().RequiresImage,
		BootnodeAddr:         bootnodeAddr,
		UseDefaultPortsInCmd: n.ns.Capabilities().UseDefaultPortsInCmd,
	}
}

// spawnRelayNodes spawns every relay node in declaration order, injecting
// the relay raw chain-spec and, for validators, a materialized keystore.
// Each node's BootnodesAddresses is set to every peer started before it in
// this loop, so later nodes dial earlier ones on startup (spec.md §4.7
// step 6, §5's "nodes start in declaration order").
func (n *Network) spawnRelayNodes(ctx context.Context) error {
	relay := &n.spec.Relaychain
	var started []string

	for _, node := range relay.Nodes {
		node.BootnodesAddresses = append([]string(nil), started...)

		if err := n.spawnOne(ctx, node, nil); err != nil {
			return err
		}

		started = append(started, bootnodeMultiaddr(n.spec.GlobalSettings.LocalIP, node.Ports.P2P.Port(), node.PeerID))
	}

	n.relayBootnodes[relay.ChainName] = started
	return nil
}

// injectRelayBootnodes bakes the full set of relay bootnode multiaddrs
// collected in spawnRelayNodes into the on-disk raw chain-spec, for
// parachain collators and future attach_to_live runs to read statically
// (spec.md §4.7 step 7).
func (n *Network) injectRelayBootnodes(ctx context.Context) error {
	addrs := n.relayBootnodes[n.spec.Relaychain.ChainName]
	if len(addrs) == 0 {
		return nil
	}
	return n.relaySpec.AddBootnodes(ctx, n.scoped, addrs)
}

// spawnCollators spawns every parachain's collators, injecting both the
// relay and the parachain's own raw chain-specs, and choosing between the
// plain-collator and cumulus dual-args command forms (spec.md §4.7 step 8).
func (n *Network) spawnCollators(ctx context.Context) error {
	for _, para := range n.spec.Parachains {
		var started []string

		for _, node := range para.Collators {
			node.BootnodesAddresses = append([]string(nil), started...)

			if err := n.spawnOne(ctx, node, para); err != nil {
				return err
			}

			started = append(started, bootnodeMultiaddr(n.spec.GlobalSettings.LocalIP, node.Ports.P2P.Port(), node.PeerID))
		}

		n.relayBootnodes[fmt.Sprintf("%d", para.ID)] = started
	}
	return nil
}

// spawnOne composes and spawns a single node. When para is nil the node
// is a relay node; otherwise it's a collator and para.IsCumulusBased
// selects between GenerateForNode (plain collator) and
// GenerateForCumulusNode.
func (n *Network) spawnOne(ctx context.Context, node *netspec.NodeSpec, para *netspec.ParachainSpec) error {
	if node.IsValidator {
		if err := n.materializeKeystore(ctx, node); err != nil {
			return err
		}
	}

	cfgFiles := []provider.TransferableFile{
		{LocalPath: n.scoped.BasePath(n.relayRawPath), RemotePath: n.spec.Relaychain.ChainName + ".json", Mode: uint32(fs.DefaultFileMode)},
	}

	opts := n.commandOptions(n.spec.GlobalSettings.BootnodeAddresses)

	var program string
	var args []string

	if para == nil {
		program, args = command.GenerateForNode(node, opts, nil)
	} else {
		cfgFiles = append(cfgFiles, provider.TransferableFile{
			LocalPath:  n.scoped.BasePath(n.paraRawPaths[para.ID]),
			RemotePath: fmt.Sprintf("%d.json", para.ID),
			Mode:       uint32(fs.DefaultFileMode),
		})
		if para.IsCumulusBased {
			program, args = command.GenerateForCumulusNode(node, opts, para.ID, node.FullP2PPort.Port())
		} else {
			paraID := para.ID
			program, args = command.GenerateForNode(node, opts, &paraID)
		}
	}

	node.Ports.DropAll()
	if node.FullP2PPort != nil {
		node.FullP2PPort.DropListener()
	}

	spawned, err := n.ns.SpawnNode(ctx, provider.SpawnNodeOptions{
		Name:     node.Name,
		Image:    node.Image,
		Program:  program,
		Args:     args,
		Env:      node.Env,
		CfgFiles: cfgFiles,
		DataPath: "/data",
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.nodes[node.Name] = spawned
	n.mu.Unlock()

	if err := n.recordNodeRuntime(node, spawned); err != nil {
		return err
	}

	return nil
}

// materializeKeystore writes a validator's session keys into
// <node>/data/chains/<chain-id>/keystore/, the path native nodes read
// their keystore from at startup (spec.md §4.6's native implementation).
func (n *Network) materializeKeystore(ctx context.Context, node *netspec.NodeSpec) error {
	keyTypes := keystore.ParseKeyTypes(node.KeystoreKeyTypes, false)
	nodeScoped := fs.New(n.scoped.FS, n.scoped.BasePath(fmt.Sprintf("%s/data/chains/%s", node.Name, n.relayChainID)))
	return keystore.Materialize(ctx, nodeScoped, node.Accounts, keyTypes)
}

// readyCheckAll polls every spawned node's prometheus endpoint until it
// returns any metrics or the per-node timeout expires (spec.md §4.7 step 9).
func (n *Network) readyCheckAll(ctx context.Context) error {
	timeout := time.Duration(n.spec.GlobalSettings.NodeSpawnTimeout) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	for _, node := range n.spec.AllNodes() {
		if err := n.readyCheckOne(ctx, node, timeout); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) readyCheckOne(ctx context.Context, node *netspec.NodeSpec, timeout time.Duration) error {
	n.mu.RLock()
	spawned, ok := n.nodes[node.Name]
	n.mu.RUnlock()
	if !ok {
		return zerr.NodeSpawningFailed(node.Name, fmt.Errorf("node not registered in namespace"))
	}

	deadline := time.Now().Add(timeout)
	for {
		result, err := spawned.RunCommand(ctx, "curl", []string{"-sf", fmt.Sprintf("http://127.0.0.1:%d/metrics", node.Ports.Prometheus.Port())}, nil)
		if err == nil {
			if m, parseErr := metrics.Parse(result.Stdout); parseErr == nil && len(m) > 0 {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return zerr.TimeoutErr(fmt.Sprintf("ready-check for node %s", node.Name), timeout.Seconds()).WithNode(node.Name)
		}

		select {
		case <-ctx.Done():
			return zerr.TimeoutErr(fmt.Sprintf("ready-check for node %s", node.Name), timeout.Seconds()).WithNode(node.Name)
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// AddNode replays step 6 for a single new relay node against an already
// running network, rejecting a name collision with DuplicatedNodeName.
func (n *Network) AddNode(ctx context.Context, node *netspec.NodeSpec) error {
	if n.hasNode(node.Name) {
		return zerr.DuplicatedNodeName(node.Name)
	}
	n.spec.Relaychain.Nodes = append(n.spec.Relaychain.Nodes, node)
	return n.spawnOne(ctx, node, nil)
}

// AddCollator replays step 8 for a single new collator of an existing
// parachain, rejecting a name collision with DuplicatedNodeName.
func (n *Network) AddCollator(ctx context.Context, node *netspec.NodeSpec, paraID uint32) error {
	if n.hasNode(node.Name) {
		return zerr.DuplicatedNodeName(node.Name)
	}
	var para *netspec.ParachainSpec
	for _, p := range n.spec.Parachains {
		if p.ID == paraID {
			para = p
			break
		}
	}
	if para == nil {
		return zerr.New(zerr.Config, fmt.Sprintf("unknown parachain id %d", paraID), nil)
	}
	para.Collators = append(para.Collators, node)
	return n.spawnOne(ctx, node, para)
}

func (n *Network) hasNode(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.nodes[name]
	return ok
}

// Destroy tears down every node and the underlying namespace.
func (n *Network) Destroy(ctx context.Context) error {
	return n.ns.Destroy(ctx)
}

// Spec returns the resolved NetworkSpec backing this run.
func (n *Network) Spec() *netspec.NetworkSpec { return n.spec }

// Node looks up a running node by name.
func (n *Network) Node(name string) (provider.Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	node, ok := n.nodes[name]
	return node, ok
}

// AttachToLive is the inverse of namespace creation: it reads the
// lockfile at baseDir, reconstructs the resolved spec, and re-attaches a
// Node handle for every previously-spawned node via
// provider.Namespace.SpawnNodeFromState, without recreating any artifact
// (spec.md §4.7's attach_to_live).
func AttachToLive(ctx context.Context, ns provider.Namespace, scoped *fs.ScopedFilesystem, baseDir string, logger *output.Logger) (*Network, error) {
	if logger == nil {
		logger = output.New()
	}

	doc, err := lockfile.Read(baseDir)
	if err != nil {
		return nil, err
	}

	net := &Network{
		ns:             ns,
		scoped:         scoped,
		baseDir:        baseDir,
		logger:         logger,
		spec:           doc.Network,
		paraSpecs:      map[uint32]*chainspec.ChainSpec{},
		paraRawPaths:   map[uint32]string{},
		relayBootnodes: map[string][]string{},
		lockDoc:        doc,
		nodes:          map[string]provider.Node{},
	}

	for _, node := range doc.Network.AllNodes() {
		runtime, ok := doc.Nodes[node.Name]
		if !ok {
			continue
		}
		spawned, err := ns.SpawnNodeFromState(ctx, node.Name, runtime.State)
		if err != nil {
			return nil, err
		}
		net.nodes[node.Name] = spawned
	}

	net.relaySpec = chainspec.New(doc.Network.Relaychain.ChainName, chainspec.Relay, doc.Network.Relaychain.DefaultCommand).
		WithChainName(doc.Network.Relaychain.ChainName)

	// Build and BuildRaw are never called on attach; the raw chain-spec
	// files were already deposited under baseDir by the original run, and
	// their paths follow that run's own naming convention (chain name for
	// the relay chain, numeric id for each parachain).
	net.relayRawPath = doc.Network.Relaychain.ChainName + ".json"
	for _, para := range doc.Network.Parachains {
		net.paraRawPaths[para.ID] = fmt.Sprintf("%d.json", para.ID)
	}

	return net, nil
}
