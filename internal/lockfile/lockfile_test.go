package lockfile

import (
	"os"
	"testing"

	"github.com/zombienet-go/zombienet/internal/netspec"
	"github.com/zombienet-go/zombienet/internal/provider"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	doc := &Document{
		Namespace: "zombie-abc",
		BaseDir:   dir,
		Network: &netspec.NetworkSpec{
			Relaychain: netspec.RelaychainSpec{ChainName: "rococo-local"},
		},
		Nodes: map[string]NodeRuntime{
			"alice": {
				Name:    "alice",
				State:   provider.NodeState{PID: 4242},
				WSPort:  9944,
				RPCPort: 9933,
			},
		},
	}

	if err := Write(dir, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("expected Exists to report true after Write")
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Namespace != "zombie-abc" {
		t.Errorf("Namespace = %q", got.Namespace)
	}
	if got.Network.Relaychain.ChainName != "rococo-local" {
		t.Errorf("ChainName = %q", got.Network.Relaychain.ChainName)
	}
	alice, ok := got.Nodes["alice"]
	if !ok {
		t.Fatal("expected alice in Nodes")
	}
	if alice.State.PID != 4242 || alice.WSPort != 9944 || alice.RPCPort != 9933 {
		t.Errorf("unexpected alice runtime: %+v", alice)
	}
}

func TestWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, &Document{Namespace: "zombie-xyz"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(Path(dir) + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected .tmp file to be renamed away, stat err = %v", err)
	}
}

func TestExistsFalseWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Error("expected Exists to report false for an empty directory")
	}
}

func TestReadMissingLockfileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Read(dir); err == nil {
		t.Fatal("expected an error reading a missing lockfile")
	}
}
