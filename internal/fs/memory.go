package fs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemory implements FileSystem entirely in a map, grounded on
// support/fs/in_memory.rs from the original source. Used by orchestrator
// tests that exercise the chain-spec and keystore pipelines without
// touching disk.
type InMemory struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewInMemory returns an empty in-memory filesystem.
func NewInMemory() *InMemory {
	return &InMemory{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"": true},
	}
}

func (m *InMemory) ReadFile(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("fs: no such file %q", path)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (m *InMemory) WriteFile(_ context.Context, path string, contents []byte, _ FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(contents))
	copy(cp, contents)
	m.files[path] = cp
	m.markDirs(path)
	return nil
}

func (m *InMemory) Create(ctx context.Context, path string) error {
	return m.WriteFile(ctx, path, nil, DefaultFileMode)
}

func (m *InMemory) MkdirAll(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	m.markDirs(path)
	return nil
}

func (m *InMemory) markDirs(path string) {
	dir := path
	for {
		idx := strings.LastIndex(dir, "/")
		if idx < 0 {
			break
		}
		dir = dir[:idx]
		m.dirs[dir] = true
	}
}

func (m *InMemory) Exists(_ context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		return true
	}
	return m.dirs[path]
}

func (m *InMemory) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *InMemory) RemoveAll(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := path + "/"
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	delete(m.dirs, path)
	return nil
}

func (m *InMemory) Copy(ctx context.Context, src, dst string) error {
	b, err := m.ReadFile(ctx, src)
	if err != nil {
		return err
	}
	return m.WriteFile(ctx, dst, b, DefaultFileMode)
}

func (m *InMemory) ReadDir(_ context.Context, path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := path + "/"
	if path == "" {
		prefix = ""
	}
	seen := map[string]bool{}
	for p := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			rest = rest[:idx]
		}
		if rest != "" {
			seen[rest] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
