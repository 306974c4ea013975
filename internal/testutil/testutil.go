// Package testutil builds throwaway directory trees for walker,
// classifier and executor tests. Everything lives under t.TempDir().
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VN1SH/reclaim/internal/fsitem"
)

// Tree is a temporary directory tree rooted at Root.
type Tree struct {
	T    *testing.T
	Root string
}

// NewTree creates an empty tree under a fresh temp directory.
func NewTree(t *testing.T) *Tree {
	t.Helper()
	return &Tree{T: t, Root: t.TempDir()}
}

// File creates a file of the given size and returns its absolute path.
func (tr *Tree) File(relPath string, size int) string {
	tr.T.Helper()
	full := filepath.Join(tr.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		tr.T.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, make([]byte, size), 0o644); err != nil {
		tr.T.Fatalf("write %s: %v", full, err)
	}
	return full
}

// FileWithAge creates a file whose mtime lies age in the past.
func (tr *Tree) FileWithAge(relPath string, size int, age time.Duration) string {
	tr.T.Helper()
	full := tr.File(relPath, size)
	old := time.Now().Add(-age)
	if err := os.Chtimes(full, old, old); err != nil {
		tr.T.Fatalf("chtimes %s: %v", full, err)
	}
	return full
}

// Dir creates a directory and returns its absolute path.
func (tr *Tree) Dir(relPath string) string {
	tr.T.Helper()
	full := filepath.Join(tr.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(full, 0o755); err != nil {
		tr.T.Fatalf("mkdir %s: %v", full, err)
	}
	return full
}

// Symlink creates a symbolic link at relPath pointing to target and
// skips the test on platforms that refuse symlink creation.
func (tr *Tree) Symlink(target, relPath string) string {
	tr.T.Helper()
	full := filepath.Join(tr.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		tr.T.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
	}
	if err := os.Symlink(target, full); err != nil {
		tr.T.Skipf("symlinks not supported here: %v", err)
	}
	return full
}

// Record builds a FileRecord for an existing path in the tree.
func (tr *Tree) Record(path string) fsitem.FileRecord {
	tr.T.Helper()
	info, err := os.Lstat(path)
	if err != nil {
		tr.T.Fatalf("lstat %s: %v", path, err)
	}
	return fsitem.FileRecord{
		Path:      path,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Extension: fsitem.ExtensionOf(path),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
		Identity:  fsitem.IdentityOf(info),
	}
}

// SkipIfRoot skips the test when running as root, where permission
// denials cannot be provoked.
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission tests are meaningless as root")
	}
}
