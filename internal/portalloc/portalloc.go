// Package portalloc reserves TCP ports on the host by binding a listening
// socket and holding it until spawn time, per spec.md §4.1. Grounded on the
// teacher's internal/infrastructure/docker/port_allocator.go, adapted from
// range allocation to single-socket reservation: the spec wants one bound
// listener per port, released just before the real process binds it, not a
// pre-computed free range.
package portalloc

import (
	"fmt"
	"net"
	"sync"

	"github.com/zombienet-go/zombienet/internal/zerr"
)

// ParkedPort holds a bound listener solely to prevent another reservation
// from picking the same port, until DropListener is called just before the
// real server starts.
type ParkedPort struct {
	mu       sync.Mutex
	port     int
	listener net.Listener
}

// Port returns the reserved port number. Valid even after DropListener.
func (p *ParkedPort) Port() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port
}

// DropListener closes the held socket, releasing the port for the real
// process to bind. Safe to call multiple times.
func (p *ParkedPort) DropListener() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	err := p.listener.Close()
	p.listener = nil
	return err
}

// Allocator reserves TCP ports by binding them on the host. It does not
// guess "next free" and performs no retries: a desired port that's already
// bound is a fatal Config error (spec.md §4.1).
type Allocator struct{}

// New returns a port Allocator.
func New() *Allocator { return &Allocator{} }

// Reserve binds 0.0.0.0:desired if desired is non-nil, or 0.0.0.0:0 to let
// the kernel pick a free port otherwise, and returns the bound ParkedPort.
func (a *Allocator) Reserve(desired *int) (*ParkedPort, error) {
	want := 0
	if desired != nil {
		want = *desired
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", want))
	if err != nil {
		if desired != nil {
			return nil, zerr.PortInUse(*desired, err)
		}
		return nil, zerr.New(zerr.IO, "failed to bind ephemeral port", err)
	}

	port := ln.Addr().(*net.TCPAddr).Port
	return &ParkedPort{port: port, listener: ln}, nil
}
