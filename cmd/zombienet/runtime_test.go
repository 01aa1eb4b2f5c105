package main

import (
	"testing"

	"github.com/zombienet-go/zombienet/internal/lockfile"
	"github.com/zombienet-go/zombienet/internal/provider"
)

func TestIsContainerRunDetectsContainerState(t *testing.T) {
	doc := &lockfile.Document{
		Nodes: map[string]lockfile.NodeRuntime{
			"alice": {Name: "alice", State: provider.NodeState{ContainerID: "abc123"}},
		},
	}
	if !isContainerRun(doc) {
		t.Error("expected a container id to be detected as a container run")
	}
}

func TestIsContainerRunDetectsNativeState(t *testing.T) {
	doc := &lockfile.Document{
		Nodes: map[string]lockfile.NodeRuntime{
			"alice": {Name: "alice", State: provider.NodeState{PID: 4242}},
		},
	}
	if isContainerRun(doc) {
		t.Error("expected a PID-only state to be detected as a native run")
	}
}

func TestIsContainerRunDefaultsToNativeWhenEmpty(t *testing.T) {
	doc := &lockfile.Document{Nodes: map[string]lockfile.NodeRuntime{}}
	if isContainerRun(doc) {
		t.Error("expected an empty node set to default to native")
	}
}
