// Package adapter contains the process, filesystem and storage adapters used
// by the package ABI checker.
package adapter

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// FSAdapter hides direct os access from the domain layer so the workflow can
// be tested without touching the disk.
//
//nolint:interfacebloat // the workflow needs the full set of scratch operations.
type FSAdapter interface {
	// Walk traverses root recursively without following symlinks.
	Walk(root m.Path, fn FilepathWalkFunc) error

	// WriteFile writes content, creating parent directories as needed.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	FileInfo(path m.Path) (os.FileInfo, error)

	// Exists reports whether path exists. Errors other than not-exist are
	// returned.
	Exists(path m.Path) (bool, error)

	// CreateTempDir creates a fresh directory under parent, or under the
	// system temp directory when parent is empty.
	CreateTempDir(parent m.Path, pattern string) (m.Path, error)

	MkdirAll(path m.Path) error

	RemoveAll(path m.Path) error

	// Rename moves oldpath to newpath, replacing newpath if it exists.
	Rename(oldpath, newpath m.Path) error

	RelPath(base, target m.Path) (m.Path, error)

	JoinPath(elem ...string) m.Path
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalFSAdapter implements FSAdapter on the local filesystem.
type LocalFSAdapter struct{}

// NewLocalFSAdapter constructs a LocalFSAdapter.
func NewLocalFSAdapter() *LocalFSAdapter {
	return &LocalFSAdapter{}
}

// Walk iterates over every entry under root.
func (a *LocalFSAdapter) Walk(root m.Path, fn FilepathWalkFunc) error {
	return filepath.Walk(string(root), filepath.WalkFunc(fn))
}

// WriteFile writes content to path.
func (a *LocalFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// Exists reports whether path exists.
func (a *LocalFSAdapter) Exists(path m.Path) (bool, error) {
	_, err := os.Stat(string(path))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// CreateTempDir creates a scratch directory.
func (a *LocalFSAdapter) CreateTempDir(parent m.Path, pattern string) (m.Path, error) {
	if parent != "" {
		if err := os.MkdirAll(string(parent), 0o750); err != nil {
			return "", err
		}
	}

	tmpDir, err := os.MkdirTemp(string(parent), pattern)
	if err != nil {
		return "", err
	}

	return m.Path(tmpDir), nil
}

// MkdirAll creates path and any missing parents.
func (a *LocalFSAdapter) MkdirAll(path m.Path) error {
	return os.MkdirAll(string(path), 0o750)
}

// RemoveAll removes a directory and all its contents.
func (a *LocalFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// Rename moves oldpath to newpath.
func (a *LocalFSAdapter) Rename(oldpath, newpath m.Path) error {
	return os.Rename(string(oldpath), string(newpath))
}

// RelPath returns the relative path from base to target.
func (a *LocalFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
