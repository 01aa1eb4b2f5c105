package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuilderAccumulatesRelaychainAndParachains(t *testing.T) {
	b := NewBuilder().
		WithRelaychain(RelaychainConfig{
			Chain:   "rococo-local",
			Nodes:   []NodeConfig{{Name: "alice", IsValidator: true}, {Name: "bob"}},
		}).
		WithParachain(ParachainConfig{ID: 2000, Collators: []NodeConfig{{Name: "col1"}}}).
		WithHrmpChannel(HrmpChannelConfig{Sender: 2000, Recipient: 2001, MaxCapacity: 8, MaxMessageSize: 1024})

	cfg := b.Build()
	if cfg.Relaychain == nil || cfg.Relaychain.Chain != "rococo-local" {
		t.Fatalf("unexpected relaychain: %+v", cfg.Relaychain)
	}
	if len(cfg.Relaychain.Nodes) != 2 {
		t.Errorf("expected 2 relay nodes, got %d", len(cfg.Relaychain.Nodes))
	}
	if len(cfg.Parachains) != 1 || cfg.Parachains[0].ID != 2000 {
		t.Errorf("unexpected parachains: %+v", cfg.Parachains)
	}
	if len(cfg.HrmpChannels) != 1 {
		t.Errorf("expected 1 hrmp channel, got %d", len(cfg.HrmpChannels))
	}
	if cfg.GlobalSettings.NetworkSpawnTimeout != 1000 {
		t.Errorf("expected default spawn timeout, got %d", cfg.GlobalSettings.NetworkSpawnTimeout)
	}
}

func TestLoaderRoundTripsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.toml")

	cfg := NewBuilder().
		WithRelaychain(RelaychainConfig{Chain: "rococo-local", Nodes: []NodeConfig{{Name: "alice"}}}).
		Build()

	loader := NewLoader()
	if err := loader.Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Relaychain == nil || got.Relaychain.Chain != "rococo-local" {
		t.Fatalf("unexpected round-tripped relaychain: %+v", got.Relaychain)
	}
	if len(got.Relaychain.Nodes) != 1 || got.Relaychain.Nodes[0].Name != "alice" {
		t.Errorf("unexpected round-tripped nodes: %+v", got.Relaychain.Nodes)
	}
}

func TestLoaderRoundTripsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.json")

	cfg := NewBuilder().
		WithParachain(ParachainConfig{ID: 2000, IsCumulusBased: true, Collators: []NodeConfig{{Name: "col1"}}}).
		Build()

	loader := NewLoader()
	if err := loader.Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Parachains) != 1 || !got.Parachains[0].IsCumulusBased {
		t.Fatalf("unexpected round-tripped parachain: %+v", got.Parachains)
	}
}

func TestLoaderMissingFileErrors(t *testing.T) {
	loader := NewLoader()
	if _, err := loader.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoaderAppliesDefaultTimeoutsWhenUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.toml")
	if err := os.WriteFile(path, []byte("[relaychain]\nchain = \"rococo-local\"\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	loader := NewLoader()
	got, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.GlobalSettings.NetworkSpawnTimeout != 1000 || got.GlobalSettings.NodeSpawnTimeout != 300 {
		t.Errorf("expected default timeouts, got %+v", got.GlobalSettings)
	}
}
