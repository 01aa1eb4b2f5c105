package main

import (
	"context"

	"github.com/zombienet-go/zombienet/internal/lockfile"
	"github.com/zombienet-go/zombienet/pkg/zombie"
)

// attachByRuntime inspects a lockfile's recorded node state to tell a
// native run (PID-based) from a container run (container-id based), then
// attaches with the matching provider, so attach/destroy don't need their
// own --provider flag on top of --podman.
func attachByRuntime(ctx context.Context, baseDir string, podman bool) (*zombie.Network, error) {
	doc, err := lockfile.Read(baseDir)
	if err != nil {
		return nil, err
	}
	if isContainerRun(doc) {
		return zombie.AttachDocker(ctx, baseDir, logger, podman)
	}
	return zombie.AttachNative(ctx, baseDir, logger)
}

func isContainerRun(doc *lockfile.Document) bool {
	for _, n := range doc.Nodes {
		return n.State.ContainerID != ""
	}
	return false
}
