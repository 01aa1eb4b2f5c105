// Package fs is the filesystem port: every generated artifact (chain specs,
// genesis files, keystores, logs) is written and read through this
// abstraction so the orchestrator can run against either the real
// filesystem or, in tests, an in-memory one.
package fs

import (
	"context"
	"io"
)

// FileSystem is the capability the orchestrator needs from a filesystem.
// It is intentionally small: ScopedFilesystem builds base-relative paths
// and multi-file copies (CopyFiles) on top of these primitives.
type FileSystem interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, contents []byte, mode FileMode) error
	Create(ctx context.Context, path string) error
	MkdirAll(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) bool
	Remove(ctx context.Context, path string) error
	RemoveAll(ctx context.Context, path string) error
	Copy(ctx context.Context, src, dst string) error
	ReadDir(ctx context.Context, path string) ([]string, error)
}

// FileMode mirrors os.FileMode's permission bits without depending on the
// concrete OS filesystem from the interface.
type FileMode uint32

const (
	// DefaultFileMode is used for generated artifacts (chain specs, keys).
	DefaultFileMode FileMode = 0o644
	// ScriptFileMode is used for files that must be executable.
	ScriptFileMode FileMode = 0o755
)

// ScopedFilesystem roots every relative path under Base, mirroring each
// namespace's exclusive ownership of its own working directory.
type ScopedFilesystem struct {
	FS   FileSystem
	Base string
}

// New creates a ScopedFilesystem rooted at base.
func New(fsys FileSystem, base string) *ScopedFilesystem {
	return &ScopedFilesystem{FS: fsys, Base: base}
}

func (s *ScopedFilesystem) path(rel string) string {
	return joinPath(s.Base, rel)
}

// ReadFile reads a path relative to the scope's base directory.
func (s *ScopedFilesystem) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	return s.FS.ReadFile(ctx, s.path(rel))
}

// ReadToString reads a path relative to the base directory as a string.
func (s *ScopedFilesystem) ReadToString(ctx context.Context, rel string) (string, error) {
	b, err := s.ReadFile(ctx, rel)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Write writes contents to a path relative to the base directory.
func (s *ScopedFilesystem) Write(ctx context.Context, rel string, contents string) error {
	return s.FS.WriteFile(ctx, s.path(rel), []byte(contents), DefaultFileMode)
}

// WriteBytes writes raw bytes with an explicit mode.
func (s *ScopedFilesystem) WriteBytes(ctx context.Context, rel string, contents []byte, mode FileMode) error {
	return s.FS.WriteFile(ctx, s.path(rel), contents, mode)
}

// MkdirAll ensures a directory relative to base exists.
func (s *ScopedFilesystem) MkdirAll(ctx context.Context, rel string) error {
	return s.FS.MkdirAll(ctx, s.path(rel))
}

// Exists reports whether a path relative to base exists.
func (s *ScopedFilesystem) Exists(ctx context.Context, rel string) bool {
	return s.FS.Exists(ctx, s.path(rel))
}

// TransferredFile describes a local-to-remote copy, where remote is relative
// to the scope's base directory.
type TransferredFile struct {
	LocalPath  string
	RemotePath string
}

// CopyFiles copies each file's LocalPath (an absolute host path, outside the
// scope) into RemotePath under the scope's base directory.
func (s *ScopedFilesystem) CopyFiles(ctx context.Context, files []TransferredFile) error {
	for _, f := range files {
		if err := s.FS.Copy(ctx, f.LocalPath, s.path(f.RemotePath)); err != nil {
			return err
		}
	}
	return nil
}

// BasePath returns the absolute path of rel under the scope's base.
func (s *ScopedFilesystem) BasePath(rel string) string {
	return s.path(rel)
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	if base == "" {
		return rel
	}
	if base[len(base)-1] == '/' {
		return base + rel
	}
	return base + "/" + rel
}

// Writer is an io.Writer that can also be closed.
type Writer interface {
	io.Writer
	io.Closer
}
