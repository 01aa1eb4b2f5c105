package orchestrator

import (
	"context"

	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/provider"
)

// namespaceRunner adapts a provider.Namespace into the narrow commandRunner
// shape chainspec.Build/BuildRaw and paraartifact.Build each declare for
// themselves: run a one-off command in a transient environment, capture
// its stdout, deposit it at destPath under the scoped filesystem. One
// implementation satisfies both unexported interfaces structurally.
type namespaceRunner struct {
	ns     provider.Namespace
	scoped *fs.ScopedFilesystem
	image  string
}

func newNamespaceRunner(ns provider.Namespace, scoped *fs.ScopedFilesystem, image string) *namespaceRunner {
	return &namespaceRunner{ns: ns, scoped: scoped, image: image}
}

func (r *namespaceRunner) GenerateFile(ctx context.Context, program string, args []string, destPath string) error {
	stdout, err := r.ns.GenerateFiles(ctx, provider.GenerateFilesOptions{
		Image:      r.image,
		Program:    program,
		Args:       args,
		OutputPath: destPath,
	})
	if err != nil {
		return err
	}
	return r.scoped.Write(ctx, destPath, stdout)
}
