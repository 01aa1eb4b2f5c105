package zombie

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zombienet-go/zombienet/internal/config"
	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/orchestrator"
	"github.com/zombienet-go/zombienet/internal/output"
	"github.com/zombienet-go/zombienet/internal/provider"
)

const metricsSample = `# HELP substrate_peers_count Number of network gossip peers
# TYPE substrate_peers_count gauge
substrate_peers_count 3
`

type fakeNode struct {
	name string
}

func (n *fakeNode) Name() string              { return n.name }
func (n *fakeNode) BaseDir() string           { return "/data/" + n.name }
func (n *fakeNode) State() provider.NodeState { return provider.NodeState{PID: 1} }
func (n *fakeNode) SendFile(ctx context.Context, local, remote string, mode uint32) error {
	return nil
}
func (n *fakeNode) ReceiveFile(ctx context.Context, remote, local string) error { return nil }
func (n *fakeNode) RunCommand(ctx context.Context, program string, args []string, env map[string]string) (provider.CommandResult, error) {
	if program == "curl" {
		return provider.CommandResult{Stdout: metricsSample}, nil
	}
	return provider.CommandResult{}, nil
}
func (n *fakeNode) RunScript(ctx context.Context, localScriptPath string, args []string, env map[string]string) (provider.CommandResult, error) {
	return provider.CommandResult{}, nil
}
func (n *fakeNode) IP(ctx context.Context) (string, error)                { return "127.0.0.1", nil }
func (n *fakeNode) Pause(ctx context.Context) error                       { return nil }
func (n *fakeNode) Resume(ctx context.Context) error                      { return nil }
func (n *fakeNode) Restart(ctx context.Context, after time.Duration) error { return nil }
func (n *fakeNode) Destroy(ctx context.Context) error                     { return nil }
func (n *fakeNode) Logs(ctx context.Context) (string, error)              { return "", nil }

type fakeNamespace struct {
	mu    sync.Mutex
	nodes map[string]provider.Node
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
	node := &fakeNode{name: opts.Name}
	ns.nodes[opts.Name] = node
	return node, nil
}

func (ns *fakeNamespace) SpawnNodeFromState(ctx context.Context, name string, state provider.NodeState) (provider.Node, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	node := &fakeNode{name: name}
	ns.nodes[name] = node
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

func (ns *fakeNamespace) Destroy(ctx context.Context) error { return nil }

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

func testConfig(baseDir string) *config.NetworkConfig {
	return &config.NetworkConfig{
		GlobalSettings: config.GlobalSettings{
			BaseDir:             baseDir,
			NetworkSpawnTimeout: 30,
			NodeSpawnTimeout:    5,
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

func newTestNetwork(t *testing.T) *Network {
	t.Helper()
	ctx := context.Background()
	baseDir := t.TempDir()
	ns := newFakeNamespace()
	scoped := fs.New(fs.NewInMemory(), "/run")

	orc, err := orchestrator.New(ctx, ns, scoped, testConfig(baseDir), output.New())
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	return &Network{orc: orc, logger: output.New()}
}

func TestNetworkNodeExposesResolvedIdentityAndPorts(t *testing.T) {
	net := newTestNetwork(t)

	alice, ok := net.Node("alice")
	if !ok {
		t.Fatal("expected alice to be registered")
	}
	if alice.Name() != "alice" {
		t.Errorf("Name() = %q, want alice", alice.Name())
	}
	if alice.PeerID() == "" {
		t.Error("expected a derived peer id")
	}
	if alice.WSPort() == 0 || alice.RPCPort() == 0 || alice.PrometheusPort() == 0 || alice.P2PPort() == 0 {
		t.Error("expected every port to be populated even after the reservation listener was dropped")
	}

	if _, ok := net.Node("nobody"); ok {
		t.Error("expected an unknown node lookup to fail")
	}
}

func TestNetworkNodesListsEveryNodeInDeclarationOrder(t *testing.T) {
	net := newTestNetwork(t)

	nodes := net.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name())
	}
	if names[0] != "alice" || names[1] != "bob" || names[2] != "collator-1" {
		t.Errorf("unexpected node order: %v", names)
	}
}

func TestRunningNodeMetricsParsesPrometheusScrape(t *testing.T) {
	net := newTestNetwork(t)
	alice, _ := net.Node("alice")

	m, err := alice.Metrics(context.Background())
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if v, ok := m.Get("substrate_peers_count"); !ok || v != 3 {
		t.Errorf("substrate_peers_count = %v, %v, want 3, true", v, ok)
	}
}

func TestAddNodeRegistersAdditionalRelayNode(t *testing.T) {
	net := newTestNetwork(t)

	charlie, err := net.AddNode(context.Background(), config.NodeConfig{Name: "charlie"})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if charlie.Name() != "charlie" {
		t.Errorf("Name() = %q, want charlie", charlie.Name())
	}
	if _, ok := net.Node("charlie"); !ok {
		t.Error("expected charlie to be reachable via Node")
	}
}

func TestAddCollatorRejectsUnknownParachain(t *testing.T) {
	net := newTestNetwork(t)

	_, err := net.AddCollator(context.Background(), config.NodeConfig{Name: "collator-2", Command: "adder-collator"}, 9999)
	if err == nil || !strings.Contains(err.Error(), "unknown parachain") {
		t.Fatalf("expected an unknown-parachain error, got %v", err)
	}
}

func TestResolveBaseDirPrefersConfiguredValue(t *testing.T) {
	cfg := &config.NetworkConfig{GlobalSettings: config.GlobalSettings{BaseDir: "/srv/net"}}
	if got := resolveBaseDir(cfg, "zombie-abc"); got != "/srv/net" {
		t.Errorf("resolveBaseDir = %q, want /srv/net", got)
	}

	cfg = &config.NetworkConfig{}
	if got := resolveBaseDir(cfg, "zombie-abc"); got != "/tmp/zombie-abc" {
		t.Errorf("resolveBaseDir = %q, want /tmp/zombie-abc", got)
	}
}
