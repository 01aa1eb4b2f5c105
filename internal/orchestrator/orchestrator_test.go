package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zombienet-go/zombienet/internal/config"
	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/lockfile"
	"github.com/zombienet-go/zombienet/internal/output"
	"github.com/zombienet-go/zombienet/internal/provider"
	"github.com/zombienet-go/zombienet/internal/zerr"
)

const metricsSample = `# HELP substrate_peers_count Number of network gossip peers
# TYPE substrate_peers_count gauge
substrate_peers_count 3
`

// fakeNode is a no-op provider.Node: RunCommand answers curl's
// prometheus scrape so readyCheckOne always succeeds immediately.
type fakeNode struct {
	name  string
	state provider.NodeState
}

func (n *fakeNode) Name() string    { return n.name }
func (n *fakeNode) BaseDir() string { return "/data/" + n.name }
func (n *fakeNode) State() provider.NodeState {
	return n.state
}
func (n *fakeNode) SendFile(ctx context.Context, local, remote string, mode uint32) error { return nil }
func (n *fakeNode) ReceiveFile(ctx context.Context, remote, local string) error           { return nil }
func (n *fakeNode) RunCommand(ctx context.Context, program string, args []string, env map[string]string) (provider.CommandResult, error) {
	if program == "curl" {
		return provider.CommandResult{Stdout: metricsSample}, nil
	}
	return provider.CommandResult{}, nil
}
func (n *fakeNode) RunScript(ctx context.Context, localScriptPath string, args []string, env map[string]string) (provider.CommandResult, error) {
	return provider.CommandResult{}, nil
}
func (n *fakeNode) IP(ctx context.Context) (string, error)   { return "127.0.0.1", nil }
func (n *fakeNode) Pause(ctx context.Context) error          { return nil }
func (n *fakeNode) Resume(ctx context.Context) error         { return nil }
func (n *fakeNode) Restart(ctx context.Context, after time.Duration) error { return nil }
func (n *fakeNode) Destroy(ctx context.Context) error        { return nil }
func (n *fakeNode) Logs(ctx context.Context) (string, error) { return "", nil }

// fakeNamespace is a minimal provider.Namespace: GenerateFiles answers a
// canned chain-spec or genesis artifact depending on the invoked
// subcommand, SpawnNode/SpawnNodeFromState just register a fakeNode.
type fakeNamespace struct {
	mu        sync.Mutex
	nodes     map[string]provider.Node
	spawned   []string
	attached  []string
	destroyed bool
}

func newFakeNamespace() *fakeNamespace {
	return &fakeNamespace{nodes: map[string]provider.Node{}}
}

func (ns *fakeNamespace) Name() string { return "zombie-test" }

func (ns *fakeNamespace) Capabilities() provider.Capabilities {
	return provider.Capabilities{RequiresImage: false, UseDefaultPortsInCmd: false, PrefixWithFullPath: true, HasResources: false}
}

func (ns *fakeNamespace) SpawnNode(ctx context.Context, opts provider.SpawnNodeOptions) (provider.Node, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	node := &fakeNode{name: opts.Name, state: provider.NodeState{PID: 1}}
	ns.nodes[opts.Name] = node
	ns.spawned = append(ns.spawned, opts.Name)
	return node, nil
}

func (ns *fakeNamespace) SpawnNodeFromState(ctx context.Context, name string, state provider.NodeState) (provider.Node, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	node := &fakeNode{name: name, state: state}
	ns.nodes[name] = node
	ns.attached = append(ns.attached, name)
	return node, nil
}

func (ns *fakeNamespace) GenerateFiles(ctx context.Context, opts provider.GenerateFilesOptions) (string, error) {
	if len(opts.Args) == 0 {
		return "", nil
	}
	switch opts.Args[0] {
	case "build-spec":
		raw := false
		for _, a := range opts.Args {
			if a == "--raw" {
				raw = true
			}
		}
		if raw {
			return rawSpecDoc, nil
		}
		return plainSpecDoc, nil
	case "export-genesis-state":
		return "0xdeadbeef\n", nil
	case "export-genesis-wasm":
		return "0xc0ffee\n", nil
	}
	return "", nil
}

func (ns *fakeNamespace) GetNodeAvailableArgs(ctx context.Context, program, image string) (string, error) {
	return "--chain --name --rpc-cors --rpc-methods --parachain-id --node-key --collator --unsafe-rpc-external", nil
}

func (ns *fakeNamespace) Node(name string) (provider.Node, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	n, ok := ns.nodes[name]
	return n, ok
}

func (ns *fakeNamespace) Nodes() []provider.Node {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]provider.Node, 0, len(ns.nodes))
	for _, n := range ns.nodes {
		out = append(out, n)
	}
	return out
}

func (ns *fakeNamespace) Destroy(ctx context.Context) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.destroyed = true
	return nil
}

const plainSpecDoc = `{
  "id": "rococo_local_testnet",
  "para_id": 0,
  "paraId": 0,
  "relay_chain": "",
  "genesis": {
    "runtime": {
      "session": {"keys": []},
      "balances": {"balances": []},
      "aura": {"authorities": []},
      "collatorSelection": {"invulnerables": []},
      "parachainInfo": {"parachainId": 0}
    }
  },
  "bootNodes": []
}`

const rawSpecDoc = `{
  "id": "rococo_local_testnet",
  "genesis": {"raw": {"top": {}}},
  "bootNodes": []
}`

func networkTestConfig(baseDir string) *config.NetworkConfig {
	return &config.NetworkConfig{
		GlobalSettings: config.GlobalSettings{
			BaseDir:             baseDir,
			NetworkSpawnTimeout: 30,
			NodeSpawnTimeout:    5,
			TearDownOnFailure:   false,
		},
		Relaychain: &config.RelaychainConfig{
			Chain:          "rococo-local",
			DefaultCommand: "polkadot",
			DefaultImage:   "parity/polkadot:latest",
			Nodes: []config.NodeConfig{
				{Name: "alice", IsValidator: true},
				{Name: "bob", IsValidator: true},
			},
		},
		Parachains: []config.ParachainConfig{
			{
				ID:             2000,
				Chain:          "adder-parachain",
				IsCumulusBased: true,
				Collators: []config.NodeConfig{
					{Name: "collator-1", Command: "adder-collator", Image: "parity/adder-collator:latest"},
				},
			},
		},
	}
}

func quietLogger() *output.Logger {
	l := output.New()
	return l
}

func TestNewSpawnsRelayAndParachainNetwork(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	ns := newFakeNamespace()
	scoped := fs.New(fs.NewInMemory(), "/run")

	net, err := New(ctx, ns, scoped, networkTestConfig(baseDir), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, name := range []string{"alice", "bob", "collator-1"} {
		if _, ok := net.Node(name); !ok {
			t.Errorf("expected node %q to be registered", name)
		}
	}

	if len(ns.spawned) != 3 {
		t.Fatalf("expected 3 nodes spawned, got %d (%v)", len(ns.spawned), ns.spawned)
	}
	// declaration order: relay nodes first, then collators.
	if ns.spawned[0] != "alice" || ns.spawned[1] != "bob" {
		t.Errorf("expected relay nodes spawned in declaration order, got %v", ns.spawned)
	}

	doc, err := lockfile.Read(baseDir)
	if err != nil {
		t.Fatalf("lockfile.Read: %v", err)
	}
	if doc.Network.Relaychain.ChainName != "rococo-local" {
		t.Errorf("unexpected lockfile network: %+v", doc.Network)
	}
}

func TestAddNodeRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	ns := newFakeNamespace()
	scoped := fs.New(fs.NewInMemory(), "/run")

	net, err := New(ctx, ns, scoped, networkTestConfig(baseDir), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dup, err := resolveNode(nil, config.NodeConfig{Name: "alice"}, "polkadot", "parity/polkadot:latest", false, map[string]bool{})
	if err != nil {
		t.Fatalf("resolveNode: %v", err)
	}

	err = net.AddNode(ctx, dup)
	if !zerr.Is(err, zerr.Config) {
		t.Fatalf("expected a DuplicatedNodeName error, got %v", err)
	}
}

func TestAttachToLiveReusesPersistedRawPathsWithoutRebuilding(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	ns := newFakeNamespace()
	scoped := fs.New(fs.NewInMemory(), "/run")

	_, err := New(ctx, ns, scoped, networkTestConfig(baseDir), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	attachNS := newFakeNamespace()
	attached, err := AttachToLive(ctx, attachNS, scoped, baseDir, quietLogger())
	if err != nil {
		t.Fatalf("AttachToLive: %v", err)
	}

	if attached.relayRawPath != "rococo-local.json" {
		t.Errorf("relayRawPath = %q, want rococo-local.json", attached.relayRawPath)
	}
	if attached.paraRawPaths[2000] != "2000.json" {
		t.Errorf("paraRawPaths[2000] = %q, want 2000.json", attached.paraRawPaths[2000])
	}

	for _, name := range []string{"alice", "bob", "collator-1"} {
		if _, ok := attached.Node(name); !ok {
			t.Errorf("expected AttachToLive to reconstruct node %q", name)
		}
	}
	if len(attachNS.spawned) != 0 {
		t.Errorf("expected attach to never call SpawnNode, got %v", attachNS.spawned)
	}
}

func TestAddCollatorRejectsUnknownParachain(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	ns := newFakeNamespace()
	scoped := fs.New(fs.NewInMemory(), "/run")

	net, err := New(ctx, ns, scoped, networkTestConfig(baseDir), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	node, err := resolveNode(nil, config.NodeConfig{Name: "collator-2", Command: "adder-collator"}, "", "", false, map[string]bool{})
	if err != nil {
		t.Fatalf("resolveNode: %v", err)
	}

	err = net.AddCollator(ctx, node, 9999)
	if err == nil || !strings.Contains(err.Error(), "unknown parachain") {
		t.Fatalf("expected an unknown-parachain error, got %v", err)
	}
}
