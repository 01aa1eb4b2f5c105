package command

import (
	"reflect"
	"testing"
)

func TestParseRemovalArgs(t *testing.T) {
	raw := []string{
		"-:--insecure-validator-i-know-what-i-do",
		"--validator",
		"-:--no-telemetry",
		"-:insecure-validator",
	}
	removals := ParseRemovalArgs(raw)
	want := []string{"--insecure-validator-i-know-what-i-do", "--no-telemetry", "--insecure-validator"}
	if !reflect.DeepEqual(removals, want) {
		t.Errorf("ParseRemovalArgs = %v, want %v", removals, want)
	}
}

func TestApplyArgRemovalsFlag(t *testing.T) {
	args := []string{"--validator", "--insecure-validator-i-know-what-i-do", "--no-telemetry"}
	removals := []string{"--insecure-validator-i-know-what-i-do"}
	res := ApplyArgRemovals(args, removals)
	want := []string{"--validator", "--no-telemetry"}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("ApplyArgRemovals = %v, want %v", res, want)
	}
}

func TestApplyArgRemovalsOptionWithEquals(t *testing.T) {
	args := []string{"--name=alice", "--port=30333"}
	removals := []string{"--port"}
	res := ApplyArgRemovals(args, removals)
	want := []string{"--name=alice"}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("ApplyArgRemovals = %v, want %v", res, want)
	}
}

func TestApplyArgRemovalsOptionWithSpace(t *testing.T) {
	args := []string{"--name", "alice", "--port", "30333"}
	removals := []string{"--port"}
	res := ApplyArgRemovals(args, removals)
	want := []string{"--name", "alice"}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("ApplyArgRemovals = %v, want %v", res, want)
	}
}

func TestApplyArgRemovalsEmpty(t *testing.T) {
	args := []string{"--validator"}
	res := ApplyArgRemovals(args, nil)
	if !reflect.DeepEqual(res, args) {
		t.Errorf("ApplyArgRemovals with no removals should return args unchanged, got %v", res)
	}
}

func TestApplyArgRemovalsPreservesFollowingFlag(t *testing.T) {
	// A removed option immediately followed by another flag (not a value)
	// must not swallow that flag.
	args := []string{"--port", "--validator"}
	removals := []string{"--port"}
	res := ApplyArgRemovals(args, removals)
	want := []string{"--validator"}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("ApplyArgRemovals = %v, want %v", res, want)
	}
}
