package replacer

import "testing"

func TestApply(t *testing.T) {
	text := "some {{namespace}}"
	res := Apply(text, map[string]string{"namespace": "demo-123"})
	if res != "some demo-123" {
		t.Fatalf("got %q", res)
	}
}

func TestApplyMultipleWithMissing(t *testing.T) {
	text := "some {{namespace}}\nother is {{other}}"
	want := "some demo-123\nother is {{other}}"
	res := Apply(text, map[string]string{"namespace": "demo-123"})
	if res != want {
		t.Fatalf("got %q want %q", res, want)
	}
}

func TestApplyWithoutReplacementLeavesUnchanged(t *testing.T) {
	text := "some {{namespace}}"
	res := Apply(text, map[string]string{"other": "demo-123"})
	if res != text {
		t.Fatalf("got %q", res)
	}
}

type fakeLookup map[string]map[string]string

func (f fakeLookup) NodeField(name, field string) (string, bool) {
	node, ok := f[name]
	if !ok {
		return "", false
	}
	v, ok := node[field]
	return v, ok
}

func TestApplyRunningNetwork(t *testing.T) {
	lookup := fakeLookup{"alice": {"multiaddr": "some/demo/127.0.0.1"}}
	res := ApplyRunningNetwork("{{ZOMBIE:alice:multiaddr}}", lookup)
	if res != "some/demo/127.0.0.1" {
		t.Fatalf("got %q", res)
	}
}

func TestApplyRunningNetworkCompatField(t *testing.T) {
	lookup := fakeLookup{"alice": {"multiaddr": "some/demo/127.0.0.1"}}
	res := ApplyRunningNetwork("{{ZOMBIE:alice:multiAddress}}", lookup)
	if res != "some/demo/127.0.0.1" {
		t.Fatalf("got %q", res)
	}
}

func TestApplyRunningNetworkMissingFieldLeavesUnchanged(t *testing.T) {
	lookup := fakeLookup{"alice": {"multiaddr": "some/demo/127.0.0.1"}}
	text := "{{ZOMBIE:alice:someField}}"
	res := ApplyRunningNetwork(text, lookup)
	if res != text {
		t.Fatalf("got %q", res)
	}
}
