package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, s *Scanner, root string) []Entry {
	t.Helper()
	var entries []Entry
	for e := range s.Scan(context.Background(), Options{RootDir: root}) {
		require.NoError(t, e.Err)
		entries = append(entries, e)
	}
	return entries
}

func TestScanYieldsFingerprintedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "README.md", "# hi\n")

	s, err := New("")
	require.NoError(t, err)

	entries := collect(t, s, dir)
	require.Len(t, entries, 2)

	byPath := map[string]Entry{}
	for _, e := range entries {
		byPath[e.File.Path] = e
	}

	main := byPath["main.go"]
	require.False(t, main.Ignored)
	require.Equal(t, "go", main.File.Language)
	require.NotEmpty(t, main.File.Hash)
}

func TestScanHonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.go", "package main\n")
	writeFile(t, dir, "vendor/lib.go", "package lib\n")

	ignorePath := filepath.Join(dir, ".ignore")
	require.NoError(t, os.WriteFile(ignorePath, []byte("vendor/\n"), 0o644))

	s, err := New(ignorePath)
	require.NoError(t, err)

	entries := collect(t, s, dir)

	var sawVendor, sawKeep bool
	for _, e := range entries {
		if e.File.Path == "keep.go" {
			sawKeep = true
			require.False(t, e.Ignored)
		}
		if e.File.Path == "vendor/lib.go" {
			sawVendor = true
		}
	}
	require.True(t, sawKeep)
	require.False(t, sawVendor, "vendor/ contents should be pruned by directory skip, not even yielded")
}

func TestFingerprintIsStableAcrossIdenticalBytes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "same content\n")
	writeFile(t, dir, "b.txt", "same content\n")

	s, err := New("")
	require.NoError(t, err)

	entries := collect(t, s, dir)
	hashes := map[string]string{}
	for _, e := range entries {
		hashes[e.File.Path] = e.File.Hash
	}
	require.Equal(t, hashes["a.txt"], hashes["b.txt"])
}
