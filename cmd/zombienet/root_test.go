package main

import "testing"

func TestRootCmdRegistersEveryCommand(t *testing.T) {
	cmd := NewRootCmd()

	want := map[string]bool{"spawn": false, "attach": false, "destroy": false, "version": false}
	for _, c := range cmd.Commands() {
		name := c.Name()
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected root command to register %q", name)
		}
	}
}

func TestVersionInfoReflectsBuildVariables(t *testing.T) {
	prevVersion, prevCommit := Version, GitCommit
	defer func() { Version, GitCommit = prevVersion, prevCommit }()

	Version = "1.2.3"
	GitCommit = "deadbeef"

	info := versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}
	if info.Version != "1.2.3" || info.GitCommit != "deadbeef" {
		t.Errorf("unexpected versionInfo: %+v", info)
	}
}
