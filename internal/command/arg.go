// Package command composes the final `(program, args[])` a node is
// spawned with, from its NodeSpec and the runtime paths/ports chosen for
// it (spec.md §4.5), ported from the reference orchestrator's command.rs
// and arg_filter.rs.
package command

import "strings"

// Arg is one user-supplied command-line argument, either a bare flag
// (`--validator`) or a key/value option (`--name alice` or
// `--name=alice`). ParseArgs builds Args from the flat string list
// NodeConfig.Args carries.
type Arg struct {
	Flag  string // set when this is a bare flag
	Key   string // set when this is an option
	Value string
}

func (a Arg) isFlag() bool { return a.Flag != "" }

// ParseArgs groups a flat slice of CLI tokens into Args, splitting
// `--key=value` in place and pairing `--key value` when the following
// token doesn't itself look like a flag.
func ParseArgs(tokens []string) []Arg {
	args := make([]Arg, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "-") {
			args = append(args, Arg{Flag: tok})
			continue
		}
		if idx := strings.IndexByte(tok, '='); idx >= 0 {
			args = append(args, Arg{Key: tok[:idx], Value: tok[idx+1:]})
			continue
		}
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
			args = append(args, Arg{Key: tok, Value: tokens[i+1]})
			i++
			continue
		}
		args = append(args, Arg{Flag: tok})
	}
	return args
}

// ToTokens flattens a slice of Args back into CLI tokens.
func ToTokens(args []Arg) []string {
	out := make([]string, 0, len(args)*2)
	for _, a := range args {
		if a.isFlag() {
			out = append(out, a.Flag)
		} else {
			out = append(out, a.Key, a.Value)
		}
	}
	return out
}

func containsFlag(args []Arg, flag string) bool {
	for _, a := range args {
		if a.isFlag() && a.Flag == flag {
			return true
		}
	}
	return false
}

func findOption(args []Arg, key string) (string, bool) {
	for _, a := range args {
		if !a.isFlag() && a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// splitOnDoubleDash returns the args before the first bare `--` flag and
// the args from (and including) it onward, mirroring cumulus's
// collator-args/full-node-args split.
func splitOnDoubleDash(args []Arg) (before, from []Arg) {
	for i, a := range args {
		if a.isFlag() && a.Flag == "--" {
			return args[:i], args[i:]
		}
	}
	return args, nil
}
