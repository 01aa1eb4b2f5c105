// Package zerr defines the error taxonomy shared across the orchestration
// engine: every fallible operation returns a *zerr.Error tagged with a Kind
// so callers can decide whether to tear down the network or not.
package zerr

import "fmt"

// Kind classifies an error by where in the pipeline it was raised.
type Kind string

const (
	// Config marks an invariant of NetworkConfig that does not hold at
	// resolution time. Raised before anything has been spawned.
	Config Kind = "config"
	// Generation marks a chain-spec or genesis artifact build failure.
	Generation Kind = "generation"
	// Spawn marks a provider refusing to start a node, or a node crashing
	// before it became ready.
	Spawn Kind = "spawn"
	// Timeout marks a bounded wait that expired.
	Timeout Kind = "timeout"
	// IO marks a filesystem operation failure.
	IO Kind = "io"
	// Runtime marks a failed operation on an already-running node.
	Runtime Kind = "runtime"
)

// Error wraps a low-level cause with a Kind and human-readable context
// identifying the node or chain involved.
type Error struct {
	Kind    Kind
	Context string
	Node    string
	Chain   string
	Cause   error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Chain != "" {
		prefix += fmt.Sprintf(" chain=%s", e.Chain)
	}
	if e.Node != "" {
		prefix += fmt.Sprintf(" node=%s", e.Node)
	}
	if e.Context != "" {
		prefix += ": " + e.Context
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	return prefix
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a *Error with the given kind and context, no node/chain tag.
func New(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Cause: cause}
}

// WithNode returns a copy of the error tagged with a node name.
func (e *Error) WithNode(name string) *Error {
	cp := *e
	cp.Node = name
	return &cp
}

// WithChain returns a copy of the error tagged with a chain name.
func (e *Error) WithChain(name string) *Error {
	cp := *e
	cp.Chain = name
	return &cp
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if ze, ok := err.(*Error); ok {
			if ze.Kind == kind {
				return true
			}
			err = ze.Cause
			continue
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// PortInUse is a convenience constructor for the port-allocator's fatal
// "desired port already bound" case.
func PortInUse(port int, cause error) *Error {
	return New(Config, fmt.Sprintf("port %d already in use", port), cause)
}

// DuplicatedNodeName is returned when a node name collides with one already
// registered in the network.
func DuplicatedNodeName(name string) *Error {
	return New(Config, "duplicated node name", fmt.Errorf("%q already exists", name))
}

// ChainSpecGeneration wraps a chain-spec build/customize failure.
func ChainSpecGeneration(context string, cause error) *Error {
	return New(Generation, context, cause)
}

// NodeSpawningFailed is returned when a provider fails to start a node
// before the process/container became live.
func NodeSpawningFailed(name string, cause error) *Error {
	return New(Spawn, "spawn failed", cause).WithNode(name)
}

// TimeoutErr is returned when a bounded wait (network or per-node) expires.
func TimeoutErr(what string, seconds float64) *Error {
	return New(Timeout, fmt.Sprintf("%s did not complete within %.1fs", what, seconds), nil)
}
