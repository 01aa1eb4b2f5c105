// Package paraartifact builds the two genesis artifacts a parachain needs
// before its entry can be injected into the relay chain-spec: the
// hex-encoded genesis head ("genesis-state") and the hex-encoded runtime
// code ("genesis-wasm"). Grounded on network_spec/parachain.rs's
// ParaArtifact/ParaArtifactBuildOption sum type, ported to Go as a small
// state machine around one of two build strategies (spec.md §4.4/§6).
package paraartifact

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/zerr"
)

// Kind distinguishes the two artifacts a parachain needs.
type Kind int

const (
	State Kind = iota
	Wasm
)

func (k Kind) subcommand() string {
	if k == Wasm {
		return "export-genesis-wasm"
	}
	return "export-genesis-state"
}

func (k Kind) destName() string {
	if k == Wasm {
		return "genesis-wasm"
	}
	return "genesis-state"
}

// commandRunner executes a one-off build command in a transient
// environment and captures its stdout, the same capability chainspec's
// Build step uses.
type commandRunner interface {
	GenerateFile(ctx context.Context, program string, args []string, destPath string) error
}

// Artifact is one of a parachain's two genesis artifacts, sourced either
// from a local file or by invoking a collator binary's export subcommand.
// Its zero value is unbuilt; Build deposits the final hex-encoded file
// under <para_id>/<genesis-state|genesis-wasm> and records its path.
type Artifact struct {
	Kind Kind

	// Exactly one of FilePath or Command should be set. FilePath wins
	// if both are, matching the generator's own path-over-command
	// precedence.
	FilePath string
	Command  string

	paraID uint32
	path   string
}

// NewFromPath returns an unbuilt artifact sourced from a local file.
func NewFromPath(kind Kind, path string) *Artifact {
	return &Artifact{Kind: kind, FilePath: path}
}

// NewFromCommand returns an unbuilt artifact sourced from a generator
// command (the collator binary that implements the export subcommand).
func NewFromCommand(kind Kind, command string) *Artifact {
	return &Artifact{Kind: kind, Command: command}
}

// Path returns the artifact's deposited path once built, or "".
func (a *Artifact) Path() string {
	return a.path
}

// Build deposits the artifact under <paraID>/<genesis-state|genesis-wasm>,
// either by copying FilePath or by invoking `<Command> export-genesis-<kind>
// --chain <chainSpecPath>` and capturing stdout. chainSpecPath is the
// parachain's own chain-spec (plain or raw), already built by chainspec.
func (a *Artifact) Build(ctx context.Context, runner commandRunner, scoped *fs.ScopedFilesystem, paraID uint32, chainSpecPath string) error {
	if a.FilePath == "" && a.Command == "" {
		return zerr.New(zerr.Generation, fmt.Sprintf("parachain %d: no path or generator command for %s", paraID, a.Kind.destName()), nil)
	}

	a.paraID = paraID
	destPath := fmt.Sprintf("%d/%s", paraID, a.Kind.destName())

	if err := scoped.MkdirAll(ctx, fmt.Sprintf("%d", paraID)); err != nil {
		return zerr.New(zerr.Generation, fmt.Sprintf("creating directory for parachain %d", paraID), err)
	}

	if a.FilePath != "" {
		if err := scoped.CopyFiles(ctx, []fs.TransferredFile{{LocalPath: a.FilePath, RemotePath: destPath}}); err != nil {
			return zerr.New(zerr.Generation, fmt.Sprintf("copying %s for parachain %d", a.Kind.destName(), paraID), err)
		}
	} else {
		args := []string{a.Kind.subcommand(), "--chain", chainSpecPath}
		if err := runner.GenerateFile(ctx, a.Command, args, destPath); err != nil {
			return zerr.New(zerr.Generation, fmt.Sprintf("running %s for parachain %d", a.Kind.subcommand(), paraID), err)
		}
	}

	raw, err := scoped.ReadToString(ctx, destPath)
	if err != nil {
		return zerr.New(zerr.Generation, fmt.Sprintf("reading %s for parachain %d", a.Kind.destName(), paraID), err)
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed != raw {
		if err := scoped.Write(ctx, destPath, trimmed); err != nil {
			return zerr.New(zerr.Generation, fmt.Sprintf("normalizing %s for parachain %d", a.Kind.destName(), paraID), err)
		}
	}

	a.path = destPath
	return nil
}

// BuildPair builds both of a parachain's genesis artifacts from the
// parachain's configured path/generator pair, preferring an explicit file
// path over a generator command for each (matching upstream's
// ParachainConfig field precedence). The two builds have no shared state —
// distinct destination files, independent generator invocations — so they
// run concurrently, per the one named exception (alongside available-args
// probing) to the otherwise strictly sequential orchestrator phases.
func BuildPair(ctx context.Context, runner commandRunner, scoped *fs.ScopedFilesystem, paraID uint32, chainSpecPath string, statePath, stateCommand, wasmPath, wasmCommand string) (state, wasm *Artifact, err error) {
	state = artifactFor(State, statePath, stateCommand)
	wasm = artifactFor(Wasm, wasmPath, wasmCommand)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return state.Build(gctx, runner, scoped, paraID, chainSpecPath) })
	group.Go(func() error { return wasm.Build(gctx, runner, scoped, paraID, chainSpecPath) })
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return state, wasm, nil
}

func artifactFor(kind Kind, path, command string) *Artifact {
	if path != "" {
		return NewFromPath(kind, path)
	}
	return NewFromCommand(kind, command)
}
