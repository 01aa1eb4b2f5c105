// Package replacer implements the `{{token}}` template substitution used to
// fill in command templates (e.g. `{{mainCommand}} build-spec`) and the
// `{{ZOMBIE:<node>:<field>}}` token used to reference a running network's
// node fields from test scripts.
package replacer

import (
	"os"
	"regexp"
)

var (
	tokenRe      = regexp.MustCompile(`\{\{([a-zA-Z0-9_]*)\}\}`)
	zombieTokenRe = regexp.MustCompile(`\{\{ZOMBIE:(.*?):(.*?)\}\}`)

	// placeholderCompat maps legacy field aliases to their canonical name.
	placeholderCompat = map[string]string{
		"multiAddress": "multiaddr",
		"wsUri":        "ws_uri",
	}
)

// Apply replaces every `{{name}}` occurrence in text with replacements[name],
// leaving unknown tokens untouched.
func Apply(text string, replacements map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(text, func(match string) string {
		name := tokenRe.FindStringSubmatch(match)[1]
		if v, ok := replacements[name]; ok {
			return v
		}
		return match
	})
}

// ApplyEnv replaces every `{{name}}` occurrence with the value of the
// environment variable of the same name, leaving unset ones untouched.
func ApplyEnv(text string) string {
	return tokenRe.ReplaceAllStringFunc(text, func(match string) string {
		name := tokenRe.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// NodeLookup resolves a field of a named node in a running network; it is
// satisfied by the network handle exposed to test scripts.
type NodeLookup interface {
	NodeField(name, field string) (string, bool)
}

// ApplyRunningNetwork replaces every `{{ZOMBIE:<node>:<field>}}` token with
// the corresponding field of the named node, resolved through lookup.
// Unresolvable tokens (unknown node or field) are left untouched.
func ApplyRunningNetwork(text string, lookup NodeLookup) string {
	return zombieTokenRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := zombieTokenRe.FindStringSubmatch(match)
		node, field := groups[1], groups[2]
		if canon, ok := placeholderCompat[field]; ok {
			field = canon
		}
		if v, ok := lookup.NodeField(node, field); ok {
			return v
		}
		return match
	})
}
