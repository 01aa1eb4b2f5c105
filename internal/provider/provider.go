// Package provider defines the backend-agnostic contract the orchestrator
// drives every node through (spec.md §4.6): a Namespace that owns a run's
// working directory and spawns Nodes, and a Node that can be supervised
// (paused, resumed, restarted, destroyed) without the orchestrator caring
// whether it's an OS process or a container.
package provider

import (
	"context"
	"time"
)

// Capabilities describes what a Namespace implementation needs from the
// orchestrator, so the same spawn pipeline can serve both backends.
type Capabilities struct {
	RequiresImage        bool
	UseDefaultPortsInCmd bool
	PrefixWithFullPath   bool
	HasResources         bool
}

// SpawnNodeOptions is everything a Namespace needs to start one node.
type SpawnNodeOptions struct {
	Name        string
	Image       string
	Program     string
	Args        []string
	Env         map[string]string
	CfgFiles    []TransferableFile
	DataPath    string
	PortMapping map[int]int // container port -> host port, container mode only
}

// TransferableFile is one artifact to place on the node before it starts.
type TransferableFile struct {
	LocalPath  string
	RemotePath string
	Mode       uint32
}

// GenerateFilesOptions describes a one-off command run in a transient
// environment to produce a file (build-spec, genesis-state, genesis-wasm).
type GenerateFilesOptions struct {
	Image      string
	Program    string
	Args       []string
	InputFiles []TransferableFile
	OutputPath string // path inside the namespace to capture stdout/the produced file into
}

// CommandResult is the outcome of Node.RunCommand: either stdout on
// success, or an exit code plus stderr on failure.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Namespace is a provider's unit of isolation: one run's working directory
// (native) or cluster scope (container), holding every node it spawned.
type Namespace interface {
	Name() string
	Capabilities() Capabilities

	// SpawnNode starts a brand-new node and registers it under Name.
	SpawnNode(ctx context.Context, opts SpawnNodeOptions) (Node, error)

	// SpawnNodeFromState re-attaches to an already-running node (native
	// PID or container id) without starting anything, for attach_to_live.
	SpawnNodeFromState(ctx context.Context, name string, state NodeState) (Node, error)

	// GenerateFiles runs a one-off command in a transient environment and
	// returns its stdout, used for build-spec and genesis artifact builds.
	GenerateFiles(ctx context.Context, opts GenerateFilesOptions) (string, error)

	// GetNodeAvailableArgs runs `<program> --help` for a (cmd, image) pair
	// and returns its stdout, cached by the caller per distinct pair.
	GetNodeAvailableArgs(ctx context.Context, program, image string) (string, error)

	// Node looks up a previously spawned node by name.
	Node(name string) (Node, bool)

	// Nodes returns every node currently registered in the namespace.
	Nodes() []Node

	// Destroy tears down every node and removes the namespace.
	Destroy(ctx context.Context) error
}

// NodeState is the persisted runtime identity of a spawned node, carried
// in the lockfile so attach_to_live can reconstruct a Node handle.
type NodeState struct {
	PID           int    // native
	ContainerID   string // container
	ContainerName string // container
}

// Node is a single supervised process or container.
type Node interface {
	Name() string
	BaseDir() string
	State() NodeState

	SendFile(ctx context.Context, local, remote string, mode uint32) error
	ReceiveFile(ctx context.Context, remote, local string) error
	RunCommand(ctx context.Context, program string, args []string, env map[string]string) (CommandResult, error)
	RunScript(ctx context.Context, localScriptPath string, args []string, env map[string]string) (CommandResult, error)

	IP(ctx context.Context) (string, error)

	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Restart(ctx context.Context, after time.Duration) error
	Destroy(ctx context.Context) error

	Logs(ctx context.Context) (string, error)
}
