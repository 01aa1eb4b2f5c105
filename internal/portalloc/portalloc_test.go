package portalloc

import "testing"

func TestReserveEphemeralPortsAreUnique(t *testing.T) {
	a := New()
	seen := map[int]bool{}
	var parked []*ParkedPort
	for i := 0; i < 8; i++ {
		p, err := a.Reserve(nil)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if seen[p.Port()] {
			t.Fatalf("duplicate port %d", p.Port())
		}
		seen[p.Port()] = true
		parked = append(parked, p)
	}
	for _, p := range parked {
		if err := p.DropListener(); err != nil {
			t.Fatalf("drop: %v", err)
		}
	}
}

func TestReserveDesiredPortConflict(t *testing.T) {
	a := New()
	p1, err := a.Reserve(nil)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	defer p1.DropListener()

	port := p1.Port()
	_, err = a.Reserve(&port)
	if err == nil {
		t.Fatalf("expected conflict error reserving already-bound port %d", port)
	}
}

func TestDropListenerIdempotent(t *testing.T) {
	a := New()
	p, err := a.Reserve(nil)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := p.DropListener(); err != nil {
		t.Fatalf("first drop: %v", err)
	}
	if err := p.DropListener(); err != nil {
		t.Fatalf("second drop: %v", err)
	}
}
