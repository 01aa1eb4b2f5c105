// Package keystore materializes a node's session keys into the SCALE-ish
// `<hex(key_type)><hex(pubkey)>` keystore files a node reads at startup,
// per spec.md §4.3. The key-type-to-scheme mapping mirrors the well-known
// 4-character key types used across Substrate-based chains.
package keystore

import (
	"fmt"
	"strings"

	"github.com/zombienet-go/zombienet/internal/keys"
)

// KeyType is a parsed keystore key type specification: a 4-character
// identifier (e.g. "aura", "gran") paired with the scheme used to derive
// and store its key.
type KeyType struct {
	ID     string
	Scheme keys.Scheme
}

func predefinedSchemes(isAssetHubPolkadot bool) map[string]keys.Scheme {
	schemes := map[string]keys.Scheme{
		"babe": keys.Sr,
		"imon": keys.Sr,
		"gran": keys.Ed,
		"audi": keys.Sr,
		"asgn": keys.Sr,
		"para": keys.Sr,
		"beef": keys.Ec,
		"nmbs": keys.Sr,
		"rand": keys.Sr,
		"rate": keys.Ed,
		"acco": keys.Sr,
		"bcsv": keys.Sr,
		"ftsv": keys.Ed,
		"mixn": keys.Sr,
	}
	if isAssetHubPolkadot {
		schemes["aura"] = keys.Ed
	} else {
		schemes["aura"] = keys.Sr
	}
	return schemes
}

var defaultKeyOrder = []string{
	"aura", "babe", "imon", "gran", "audi", "asgn", "para", "beef", "nmbs",
	"rand", "rate", "mixn", "bcsv", "ftsv",
}

func parseScheme(s string) (keys.Scheme, bool) {
	switch strings.ToLower(s) {
	case "sr":
		return keys.Sr, true
	case "ed":
		return keys.Ed, true
	case "ec":
		return keys.Ec, true
	default:
		return "", false
	}
}

// parseSpec parses one key-type spec in either short form ("audi", using a
// predefined or sr-default scheme) or long form ("audi_sr", explicit
// scheme). Returns false if the spec doesn't match either shape.
func parseSpec(spec string, predefined map[string]keys.Scheme) (KeyType, bool) {
	spec = strings.TrimSpace(spec)

	if idx := strings.IndexByte(spec, '_'); idx >= 0 {
		keyType, schemeStr := spec[:idx], spec[idx+1:]
		if len(keyType) != 4 {
			return KeyType{}, false
		}
		scheme, ok := parseScheme(schemeStr)
		if !ok {
			return KeyType{}, false
		}
		return KeyType{ID: keyType, Scheme: scheme}, true
	}

	if len(spec) == 4 {
		scheme, ok := predefined[spec]
		if !ok {
			scheme = keys.Sr
		}
		return KeyType{ID: spec, Scheme: scheme}, true
	}

	return KeyType{}, false
}

// ParseKeyTypes parses a list of key-type specs, silently dropping any that
// don't match either the short or long form. If every spec is dropped (or
// the list is empty), the default key-type set is returned instead.
func ParseKeyTypes(specs []string, isAssetHubPolkadot bool) []KeyType {
	predefined := predefinedSchemes(isAssetHubPolkadot)

	parsed := make([]KeyType, 0, len(specs))
	for _, spec := range specs {
		if kt, ok := parseSpec(spec, predefined); ok {
			parsed = append(parsed, kt)
		}
	}

	if len(parsed) == 0 {
		return DefaultKeyTypes(isAssetHubPolkadot)
	}
	return parsed
}

// DefaultKeyTypes returns the key types materialized when no explicit list
// is configured.
func DefaultKeyTypes(isAssetHubPolkadot bool) []KeyType {
	predefined := predefinedSchemes(isAssetHubPolkadot)
	out := make([]KeyType, 0, len(defaultKeyOrder))
	for _, id := range defaultKeyOrder {
		scheme, ok := predefined[id]
		if !ok {
			continue
		}
		out = append(out, KeyType{ID: id, Scheme: scheme})
	}
	return out
}

func (kt KeyType) String() string {
	return fmt.Sprintf("%s_%s", kt.ID, kt.Scheme)
}
