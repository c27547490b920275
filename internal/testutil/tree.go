// Package testutil holds helpers shared by package tests: deterministic
// clocks and ids, and fixture directory trees.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// TempRoot returns a fresh temporary directory with symbolic links
// resolved, so paths built from it compare equal to canonicalised ones.
func TempRoot(t testing.TB) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}
	return dir
}

// WriteTree creates files under a new TempRoot and returns the root. Keys
// are slash-separated relative paths; parent directories are created.
func WriteTree(t testing.TB, files map[string]string) string {
	t.Helper()
	root := TempRoot(t)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		WriteFile(t, root, name, files[name])
	}
	return root
}

// WriteFile writes content to root/name, creating parent directories, and
// returns the full path.
func WriteFile(t testing.TB, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
