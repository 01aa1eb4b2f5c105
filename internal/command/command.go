package command

import (
	"fmt"
	"strings"

	"github.com/zombienet-go/zombienet/internal/netspec"
)

// default container ports used when the namespace publishes ports via
// docker rather than letting the node bind the host port directly
// (spec.md §4.5's use_default_ports_in_cmd).
const (
	defaultPrometheusPort = 9615
	defaultRPCPort        = 9944
	defaultP2PPort        = 30333
)

// flagsAddedByUs are flags the composer itself injects; any identical
// user-supplied flag is stripped from the passthrough args so it's never
// duplicated.
var flagsAddedByUs = map[string]bool{
	"--unsafe-rpc-external": true,
	"--no-telemetry":        true,
	"--no-mdns":             true,
	"--collator":            true,
	"--":                    true,
}

// opsAddedByUs are key/value options the composer itself injects.
var opsAddedByUs = map[string]bool{
	"--chain":        true,
	"--name":         true,
	"--rpc-cors":     true,
	"--rpc-methods":  true,
	"--parachain-id": true,
	"--node-key":     true,
}

// Options carries the runtime context the composer needs beyond the
// NodeSpec itself.
type Options struct {
	RelayChainName       string
	CfgPath              string
	DataPath             string
	RelayDataPath        string
	UseWrapper           bool
	BootnodeAddr         []string
	UseDefaultPortsInCmd bool
}

func defaultOptions() Options {
	return Options{
		RelayChainName: "rococo-local",
		CfgPath:        "/cfg",
		DataPath:       "/data",
		RelayDataPath:  "/relay-data",
		UseWrapper:     true,
	}
}

// DefaultOptions returns the composer's zero-configuration defaults,
// matching the reference implementation's Default impl.
func DefaultOptions() Options { return defaultOptions() }

func resolvePorts(node *netspec.NodeSpec, useDefaults bool) (prometheus, rpc, p2p int) {
	if useDefaults {
		return defaultPrometheusPort, defaultRPCPort, defaultP2PPort
	}
	return node.Ports.Prometheus.Port(), node.Ports.RPC.Port(), node.Ports.P2P.Port()
}

func filterPassthrough(args []Arg) []string {
	out := make([]string, 0, len(args)*2)
	for _, a := range args {
		if a.isFlag() {
			if flagsAddedByUs[a.Flag] {
				continue
			}
			out = append(out, a.Flag)
			continue
		}
		if opsAddedByUs[a.Key] {
			continue
		}
		out = append(out, a.Key, a.Value)
	}
	return out
}

func joinBootnodes(nodeSpecific, extra []string) string {
	all := make([]string, 0, len(nodeSpecific)+len(extra))
	all = append(all, nodeSpecific...)
	all = append(all, extra...)
	return strings.Join(all, " ")
}

// GenerateForNode composes the program/args for a relay-chain node (or a
// standalone/non-cumulus collator, when paraID is non-nil).
func GenerateForNode(node *netspec.NodeSpec, opts Options, paraID *uint32) (string, []string) {
	userArgs := ParseArgs(FilterRemovals(node.Args))

	tmp := []string{"--node-key", node.NodeKeyHex, "--no-telemetry"}

	if !containsFlag(userArgs, "--prometheus-external") {
		tmp = append(tmp, "--prometheus-external")
	}

	if paraID != nil {
		tmp = append(tmp, "--parachain-id", fmt.Sprintf("%d", *paraID))
	}

	if node.IsValidator && !containsFlag(userArgs, "--validator") {
		tmp = append(tmp, "--validator")
		if node.SupportsArg("--insecure-validator-i-know-what-i-do") {
			tmp = append(tmp, "--insecure-validator-i-know-what-i-do")
		}
	}

	prometheusPort, rpcPort, p2pPort := resolvePorts(node, opts.UseDefaultPortsInCmd)

	tmp = append(tmp, "--prometheus-port", fmt.Sprintf("%d", prometheusPort))
	tmp = append(tmp, "--rpc-port", fmt.Sprintf("%d", rpcPort))

	listenValue := fmt.Sprintf("/ip4/0.0.0.0/tcp/%d/ws", p2pPort)
	if existing, ok := findOption(userArgs, "--listen-addr"); ok {
		parts := strings.Split(existing, "/")
		if len(parts) > 4 {
			parts[4] = fmt.Sprintf("%d", p2pPort)
			listenValue = strings.Join(parts, "/")
		}
	}
	tmp = append(tmp, "--listen-addr", listenValue)

	tmp = append(tmp, "--base-path", opts.DataPath)

	if full := joinBootnodes(node.BootnodesAddresses, opts.BootnodeAddr); full != "" {
		tmp = append(tmp, "--bootnodes", full)
	}

	tmp = append(tmp, filterPassthrough(userArgs)...)

	chainSpecPath := fmt.Sprintf("%s/%s.json", opts.CfgPath, opts.RelayChainName)
	final := []string{
		node.Command,
		"--chain", chainSpecPath,
		"--name", node.Name,
		"--rpc-cors", "all",
		"--unsafe-rpc-external",
		"--rpc-methods", "unsafe",
	}
	final = append(final, tmp...)

	if node.Subcommand != "" {
		final = insertAt(final, 1, node.Subcommand)
	}

	return finalizeWrapper(final, opts.UseWrapper)
}

// GenerateForCumulusNode composes the dual-args form for a cumulus-based
// collator: collator args, then a literal `--`, then the embedded
// relay-full-node args.
func GenerateForCumulusNode(node *netspec.NodeSpec, opts Options, paraID uint32, fullP2PPort int) (string, []string) {
	userArgs := ParseArgs(FilterRemovals(node.Args))

	tmp := []string{"--node-key", node.NodeKeyHex}

	if !containsFlag(userArgs, "--prometheus-external") {
		tmp = append(tmp, "--prometheus-external")
	}

	if node.IsValidator && !containsFlag(userArgs, "--validator") {
		tmp = append(tmp, "--collator")
	}

	prometheusPort, rpcPort, p2pPort := resolvePorts(node, opts.UseDefaultPortsInCmd)
	tmp = append(tmp, "--prometheus-port", fmt.Sprintf("%d", prometheusPort))
	tmp = append(tmp, "--rpc-port", fmt.Sprintf("%d", rpcPort))
	tmp = append(tmp, "--listen-addr", fmt.Sprintf("/ip4/0.0.0.0/tcp/%d/ws", p2pPort))

	collatorArgs, fullNodeArgs := splitOnDoubleDash(userArgs)

	tmp = append(tmp, "--base-path", opts.DataPath)

	if full := joinBootnodes(node.BootnodesAddresses, opts.BootnodeAddr); full != "" {
		tmp = append(tmp, "--bootnodes", full)
	}

	fullNodeFiltered := make([]string, 0, len(fullNodeArgs)*2)
	for _, a := range fullNodeArgs {
		if a.isFlag() {
			if flagsAddedByUs[a.Flag] {
				continue
			}
			fullNodeFiltered = append(fullNodeFiltered, a.Flag)
			continue
		}
		if opsAddedByUs[a.Key] {
			continue
		}
		if a.Key == "--port" && a.Value == fmt.Sprintf("%d", defaultP2PPort) {
			continue
		}
		fullNodeFiltered = append(fullNodeFiltered, a.Key, a.Value)
	}
	fullNodeFiltered = append(fullNodeFiltered, "--port", fmt.Sprintf("%d", fullP2PPort))

	tmp = append(tmp, filterPassthrough(collatorArgs)...)

	parachainSpecPath := fmt.Sprintf("%s/%d.json", opts.CfgPath, paraID)
	final := []string{
		node.Command,
		"--chain", parachainSpecPath,
		"--name", node.Name,
		"--rpc-cors", "all",
		"--unsafe-rpc-external",
		"--rpc-methods", "unsafe",
	}
	final = append(final, tmp...)

	relaychainSpecPath := fmt.Sprintf("%s/%s.json", opts.CfgPath, opts.RelayChainName)
	final = append(final, "--", "--base-path", opts.RelayDataPath, "--chain", relaychainSpecPath, "--execution", "wasm")
	final = append(final, fullNodeFiltered...)

	return finalizeWrapper(final, opts.UseWrapper)
}

func finalizeWrapper(args []string, useWrapper bool) (string, []string) {
	if useWrapper {
		return "/cfg/zombie-wrapper.sh", args
	}
	return args[0], args[1:]
}

func insertAt(args []string, idx int, value string) []string {
	out := make([]string, 0, len(args)+1)
	out = append(out, args[:idx]...)
	out = append(out, value)
	out = append(out, args[idx:]...)
	return out
}
