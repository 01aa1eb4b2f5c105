package command

import "strings"

// ParseRemovalArgs extracts the flags marked for removal from a node's raw
// arg list: any flag prefixed `-:` names a flag that should be dropped
// from the composed command even if something else would add it.
// `-:--insecure-validator-i-know-what-i-do` removes that flag verbatim;
// `-:insecure-validator` is normalized to `--insecure-validator`.
func ParseRemovalArgs(rawFlags []string) []string {
	removals := make([]string, 0, len(rawFlags))
	for _, flag := range rawFlags {
		if !strings.HasPrefix(flag, "-:") {
			continue
		}
		name := flag[2:]
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		removals = append(removals, name)
	}
	return removals
}

// ApplyArgRemovals filters a flat token slice, dropping any token that
// matches a removal either as a bare flag, as `<removal>=value`, or as
// `<removal> value` (the following non-flag token is skipped too).
func ApplyArgRemovals(args []string, removals []string) []string {
	if len(removals) == 0 {
		return args
	}

	res := make([]string, 0, len(args))
	skipNext := false

	for i, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}

		remove := false
		for _, removal := range removals {
			if arg == removal || strings.HasPrefix(arg, removal+"=") {
				remove = true
				break
			}
		}

		if remove {
			if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				skipNext = true
			}
			continue
		}

		res = append(res, arg)
	}

	return res
}

// FilterRemovals strips `-:` removal markers out of a node's raw arg list
// and drops whatever they target, returning the tokens that should still
// be parsed as ordinary user args. Both generators must run a node's raw
// args through this before ParseArgs so the markers never leak into the
// composed command line as literal, unrecognized flags.
func FilterRemovals(rawFlags []string) []string {
	removals := ParseRemovalArgs(rawFlags)

	kept := make([]string, 0, len(rawFlags))
	for _, flag := range rawFlags {
		if strings.HasPrefix(flag, "-:") {
			continue
		}
		kept = append(kept, flag)
	}

	return ApplyArgRemovals(kept, removals)
}
