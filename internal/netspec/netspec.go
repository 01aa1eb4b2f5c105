// Package netspec holds the resolved, in-memory plan for a network: every
// node's derived identity, keys, and reserved ports, grouped under the
// relay chain and its parachains. Building one of these from a
// configuration is the orchestrator's first step (spec.md §4.7 step 1).
package netspec

import (
	"github.com/zombienet-go/zombienet/internal/keys"
	"github.com/zombienet-go/zombienet/internal/portalloc"
)

// NodePorts is the set of host ports a node occupies, each parked until
// just before the node process is spawned.
type NodePorts struct {
	WS         *portalloc.ParkedPort
	RPC        *portalloc.ParkedPort
	Prometheus *portalloc.ParkedPort
	P2P        *portalloc.ParkedPort
}

// DropAll releases every still-held listener. Safe to call more than once
// and safe to call on a zero-value NodePorts.
func (p *NodePorts) DropAll() {
	if p == nil {
		return
	}
	for _, parked := range []*portalloc.ParkedPort{p.WS, p.RPC, p.Prometheus, p.P2P} {
		if parked != nil {
			parked.DropListener()
		}
	}
}

// NodeSpec is a fully-resolved node: config merged with chain defaults,
// plus everything generated at resolution time.
type NodeSpec struct {
	Name             string
	Image            string
	Command          string
	Subcommand       string
	Args             []string
	IsValidator      bool
	IsInvulnerable   bool
	IsBootnode       bool
	InitialBalance   uint64
	Env              map[string]string
	DesiredWS        *int
	DesiredRPC       *int
	DesiredProm      *int
	DesiredP2P       *int
	P2PCertHash      string
	KeystoreKeyTypes []string
	ChainSpecKeyType string

	NodeKeyHex string
	PeerID     string
	Seed       string
	Accounts   map[keys.Scheme]keys.Account

	Ports NodePorts

	// FullP2PPort is reserved only for cumulus-based collators: the
	// embedded relay full-node side needs its own p2p port, separate
	// from the collator's own Ports.P2P (spec.md §4.5's "a second p2p
	// port for the relay full-node side").
	FullP2PPort *portalloc.ParkedPort

	// BootnodesAddresses are multiaddrs of peers this node should dial on
	// startup, collected from nodes started earlier in the same chain.
	BootnodesAddresses []string

	// AvailableArgsOutput caches the `--help` output for this node's
	// (image, command) pair, populated once per unique pair (spec.md §4.7
	// step 3) and consulted by the command composer's supports_arg check.
	AvailableArgsOutput string
}

// SupportsArg reports whether x appears verbatim in the cached --help
// output for this node's binary.
func (n *NodeSpec) SupportsArg(x string) bool {
	return contains(n.AvailableArgsOutput, x)
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

// RelaychainSpec is the resolved relay chain: its name, the chain-spec
// source, and every node.
type RelaychainSpec struct {
	ChainName      string
	DefaultCommand string
	DefaultImage   string
	Nodes          []*NodeSpec
}

// ParachainSpec is one resolved parachain: its id, whether it's
// cumulus-based (collator + embedded relay full-node args), and its
// collators.
type ParachainSpec struct {
	ID             uint32
	IsCumulusBased bool
	AsParachain    bool
	ChainName      string
	DefaultCommand string
	DefaultImage   string
	Collators      []*NodeSpec

	// Genesis artifact sourcing: a path wins over a generator command
	// when both are set, matching the upstream configuration's
	// precedence (a fetched/committed artifact over invoking a binary).
	GenesisStatePath      string
	GenesisStateGenerator string
	GenesisWasmPath       string
	GenesisWasmGenerator  string
}

// HrmpChannelConfig describes one configured HRMP channel between two
// parachains. Injection is a documented gap in the original implementation
// (chain_spec.rs's add_hrmp_channels is unimplemented); this system carries
// the configuration through NetworkSpec but customize_relay does not yet
// apply it, matching upstream's current behavior.
type HrmpChannelConfig struct {
	Sender         uint32
	Recipient      uint32
	MaxCapacity    uint32
	MaxMessageSize uint32
}

// GlobalSettings carries the run-wide knobs from NetworkConfig that aren't
// owned by any one chain.
type GlobalSettings struct {
	BaseDir             string
	BootnodeAddresses   []string
	LocalIP             string
	NetworkSpawnTimeout int
	NodeSpawnTimeout    int
	TearDownOnFailure   bool
}

// NetworkSpec is the fully-resolved plan an orchestrator run produces and
// the lockfile persists.
type NetworkSpec struct {
	Relaychain     RelaychainSpec
	Parachains     []*ParachainSpec
	HrmpChannels   []HrmpChannelConfig
	GlobalSettings GlobalSettings
}

// AllNodes returns every node across the relay chain and all parachains,
// relay nodes first, in declaration order.
func (ns *NetworkSpec) AllNodes() []*NodeSpec {
	all := make([]*NodeSpec, 0, len(ns.Relaychain.Nodes))
	all = append(all, ns.Relaychain.Nodes...)
	for _, para := range ns.Parachains {
		all = append(all, para.Collators...)
	}
	return all
}
