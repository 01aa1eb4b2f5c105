// Package config holds the declarative NetworkConfig value type the
// orchestrator resolves into a netspec.NetworkSpec, plus a TOML/JSON
// loader for it. Validation stays out of scope (spec.md §1 treats
// NetworkConfig's construction as a pure value constructor the caller
// already trusts); this package's job is shape and I/O, not rejection.
// Grounded on the original configuration crate's NetworkConfig/
// RelaychainConfig/ParachainConfig/NodeConfig/GlobalSettings field sets,
// flattened from its per-field typestate builders into plain Go structs
// plus one accumulating Builder, the way the teacher's own config package
// accumulates a FileConfig from TOML rather than modeling Rust typestates.
package config

// NodeConfig is one node's declared configuration, merged against its
// chain's defaults at resolution time.
type NodeConfig struct {
	Name             string            `toml:"name" json:"name"`
	Image            string            `toml:"image,omitempty" json:"image,omitempty"`
	Command          string            `toml:"command,omitempty" json:"command,omitempty"`
	Args             []string          `toml:"args,omitempty" json:"args,omitempty"`
	IsValidator      bool              `toml:"validator,omitempty" json:"validator,omitempty"`
	IsInvulnerable   bool              `toml:"invulnerable,omitempty" json:"invulnerable,omitempty"`
	IsBootnode       bool              `toml:"bootnode,omitempty" json:"bootnode,omitempty"`
	InitialBalance   uint64            `toml:"initial_balance,omitempty" json:"initial_balance,omitempty"`
	Env              map[string]string `toml:"env,omitempty" json:"env,omitempty"`
	BootnodesAddresses []string        `toml:"bootnodes_addresses,omitempty" json:"bootnodes_addresses,omitempty"`
	WSPort           *int              `toml:"ws_port,omitempty" json:"ws_port,omitempty"`
	RPCPort          *int              `toml:"rpc_port,omitempty" json:"rpc_port,omitempty"`
	PrometheusPort   *int              `toml:"prometheus_port,omitempty" json:"prometheus_port,omitempty"`
	P2PPort          *int              `toml:"p2p_port,omitempty" json:"p2p_port,omitempty"`
	KeystoreKeyTypes []string          `toml:"keystore_key_types,omitempty" json:"keystore_key_types,omitempty"`
}

// RelaychainConfig is the declared relay chain: its chain-spec source,
// shared defaults, and nodes.
type RelaychainConfig struct {
	Chain                string       `toml:"chain" json:"chain"`
	DefaultCommand       string       `toml:"default_command,omitempty" json:"default_command,omitempty"`
	DefaultImage         string       `toml:"default_image,omitempty" json:"default_image,omitempty"`
	ChainSpecPath        string       `toml:"chain_spec_path,omitempty" json:"chain_spec_path,omitempty"`
	DefaultArgs          []string     `toml:"default_args,omitempty" json:"default_args,omitempty"`
	RandomNominatorsCount *uint32     `toml:"random_nominators_count,omitempty" json:"random_nominators_count,omitempty"`
	MaxNominations       *uint8       `toml:"max_nominations,omitempty" json:"max_nominations,omitempty"`
	Nodes                []NodeConfig `toml:"nodes" json:"nodes"`
}

// ParachainConfig is one declared parachain: its id, genesis artifact
// sourcing, and collators.
type ParachainConfig struct {
	ID                    uint32       `toml:"id" json:"id"`
	Chain                 string       `toml:"chain,omitempty" json:"chain,omitempty"`
	InitialBalance        uint64       `toml:"initial_balance,omitempty" json:"initial_balance,omitempty"`
	GenesisWasmPath       string       `toml:"genesis_wasm_path,omitempty" json:"genesis_wasm_path,omitempty"`
	GenesisWasmGenerator  string       `toml:"genesis_wasm_generator,omitempty" json:"genesis_wasm_generator,omitempty"`
	GenesisStatePath      string       `toml:"genesis_state_path,omitempty" json:"genesis_state_path,omitempty"`
	GenesisStateGenerator string       `toml:"genesis_state_generator,omitempty" json:"genesis_state_generator,omitempty"`
	ChainSpecPath         string       `toml:"chain_spec_path,omitempty" json:"chain_spec_path,omitempty"`
	IsCumulusBased        bool         `toml:"is_cumulus_based,omitempty" json:"is_cumulus_based,omitempty"`
	AsParachain           bool         `toml:"as_parachain,omitempty" json:"as_parachain,omitempty"`
	BootnodesAddresses    []string     `toml:"bootnodes_addresses,omitempty" json:"bootnodes_addresses,omitempty"`
	Collators             []NodeConfig `toml:"collators" json:"collators"`
}

// HrmpChannelConfig declares one HRMP channel between two parachains.
type HrmpChannelConfig struct {
	Sender         uint32 `toml:"sender" json:"sender"`
	Recipient      uint32 `toml:"recipient" json:"recipient"`
	MaxCapacity    uint32 `toml:"max_capacity" json:"max_capacity"`
	MaxMessageSize uint32 `toml:"max_message_size" json:"max_message_size"`
}

// GlobalSettings carries run-wide knobs that aren't owned by any one
// chain: timeouts, the base directory, bootnode addresses, local IP.
type GlobalSettings struct {
	BaseDir             string   `toml:"base_dir,omitempty" json:"base_dir,omitempty"`
	BootnodeAddresses   []string `toml:"bootnodes_addresses,omitempty" json:"bootnodes_addresses,omitempty"`
	LocalIP             string   `toml:"local_ip,omitempty" json:"local_ip,omitempty"`
	NetworkSpawnTimeout int      `toml:"network_spawn_timeout,omitempty" json:"network_spawn_timeout,omitempty"`
	NodeSpawnTimeout    int      `toml:"node_spawn_timeout,omitempty" json:"node_spawn_timeout,omitempty"`
	TearDownOnFailure   bool     `toml:"teardown_on_failure,omitempty" json:"teardown_on_failure,omitempty"`
}

// defaultGlobalSettings mirrors GlobalSettingsBuilder's defaults.
func defaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		NetworkSpawnTimeout: 1000,
		NodeSpawnTimeout:    300,
		TearDownOnFailure:   true,
	}
}

// applyGlobalSettingsDefaults fills in NetworkSpawnTimeout and
// NodeSpawnTimeout when a decoded document left them zero. It does not
// touch TearDownOnFailure: a decoded document that omits it keeps false,
// not the Builder's default of true.
func applyGlobalSettingsDefaults(gs *GlobalSettings) {
	defaults := defaultGlobalSettings()
	if gs.NetworkSpawnTimeout == 0 {
		gs.NetworkSpawnTimeout = defaults.NetworkSpawnTimeout
	}
	if gs.NodeSpawnTimeout == 0 {
		gs.NodeSpawnTimeout = defaults.NodeSpawnTimeout
	}
}

// NetworkConfig is a whole declared network: one relay chain, any number
// of parachains, HRMP channels, and global settings.
type NetworkConfig struct {
	GlobalSettings GlobalSettings      `toml:"global_settings" json:"global_settings"`
	Relaychain     *RelaychainConfig   `toml:"relaychain" json:"relaychain"`
	Parachains     []ParachainConfig   `toml:"parachains,omitempty" json:"parachains,omitempty"`
	HrmpChannels   []HrmpChannelConfig `toml:"hrmp_channels,omitempty" json:"hrmp_channels,omitempty"`
}

// Builder accumulates a NetworkConfig. It performs no validation — a
// missing relay chain or empty node list is caught downstream, when the
// orchestrator tries to resolve the config into a NetworkSpec, matching
// this layer's job of assembling a value rather than rejecting one.
type Builder struct {
	cfg NetworkConfig
}

// NewBuilder returns a Builder seeded with the same defaults the original
// GlobalSettingsBuilder produces.
func NewBuilder() *Builder {
	return &Builder{cfg: NetworkConfig{GlobalSettings: defaultGlobalSettings()}}
}

// WithGlobalSettings replaces the accumulated global settings.
func (b *Builder) WithGlobalSettings(gs GlobalSettings) *Builder {
	b.cfg.GlobalSettings = gs
	return b
}

// WithRelaychain sets the relay chain configuration.
func (b *Builder) WithRelaychain(rc RelaychainConfig) *Builder {
	b.cfg.Relaychain = &rc
	return b
}

// WithParachain appends one parachain configuration.
func (b *Builder) WithParachain(pc ParachainConfig) *Builder {
	b.cfg.Parachains = append(b.cfg.Parachains, pc)
	return b
}

// WithHrmpChannel appends one HRMP channel configuration.
func (b *Builder) WithHrmpChannel(hc HrmpChannelConfig) *Builder {
	b.cfg.HrmpChannels = append(b.cfg.HrmpChannels, hc)
	return b
}

// Build returns the accumulated NetworkConfig.
func (b *Builder) Build() *NetworkConfig {
	cfg := b.cfg
	return &cfg
}
