// Package lockfile persists the resolved NetworkSpec plus every node's
// runtime identity (PID or container id, its occupied ports) to
// zombie.json under the run's base directory, so a later process can
// attach to a still-running network (spec.md §6's on-disk layout, §8's
// attach_to_live). Grounded on the teacher's internal/devnet/lock.go
// read/write-with-atomic-rename shape, generalized from a PID-held mutex
// file to a snapshot of the whole network.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zombienet-go/zombienet/internal/netspec"
	"github.com/zombienet-go/zombienet/internal/provider"
	"github.com/zombienet-go/zombienet/internal/zerr"
)

// FileName is the lockfile's fixed name under a run's base directory.
const FileName = "zombie.json"

// NodeRuntime is one node's runtime identity and the host ports it ended
// up bound to, captured at spawn time so a later attach doesn't need to
// re-derive them.
type NodeRuntime struct {
	Name           string             `json:"name"`
	State          provider.NodeState `json:"state"`
	WSPort         int                `json:"ws_port,omitempty"`
	RPCPort        int                `json:"rpc_port,omitempty"`
	PrometheusPort int                `json:"prometheus_port,omitempty"`
	P2PPort        int                `json:"p2p_port,omitempty"`
}

// Document is the full contents of zombie.json: the network this run
// resolved plus the runtime identity of every node it spawned.
type Document struct {
	Namespace string    `json:"namespace"`
	BaseDir   string    `json:"base_dir"`
	CreatedAt time.Time `json:"created_at"`

	// Network is the resolved plan (identities, keys, node config); its
	// ParkedPort handles hold no exported state and marshal to nothing,
	// since by spawn time every port is already dropped. Nodes is where
	// the recovered port numbers actually live.
	Network *netspec.NetworkSpec   `json:"network"`
	Nodes   map[string]NodeRuntime `json:"nodes"`
}

// Path returns the lockfile's path under baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, FileName)
}

// Write serializes doc and atomically replaces the lockfile at its path
// under baseDir: write to a temp file in the same directory, then rename,
// so a reader never observes a half-written document.
func Write(baseDir string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return zerr.New(zerr.IO, "encoding zombie.json", err)
	}

	path := Path(baseDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return zerr.New(zerr.IO, fmt.Sprintf("writing %s", tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return zerr.New(zerr.IO, fmt.Sprintf("renaming %s into place", tmp), err)
	}
	return nil
}

// Read loads and parses the lockfile from baseDir.
func Read(baseDir string) (*Document, error) {
	path := Path(baseDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.New(zerr.IO, fmt.Sprintf("reading %s", path), err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.New(zerr.IO, fmt.Sprintf("%s is not valid json", path), err)
	}
	return &doc, nil
}

// Exists reports whether a lockfile is present under baseDir.
func Exists(baseDir string) bool {
	_, err := os.Stat(Path(baseDir))
	return err == nil
}
