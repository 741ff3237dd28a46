// Package testsupport provides helpers shared across package tests: temp-dir
// rooted configurations, library fixtures, and stub external binaries.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// NewConfig returns a validated configuration rooted in a fresh temp
// directory, with the library, log, archive, and temp directories created.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(root, "library")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.SocketPath = filepath.Join(root, "lectern.sock")
	cfg.Scanner.IntervalSeconds = 1

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WriteMedia creates a media file under the library at the given relative
// path, creating intermediate course directories.
func WriteMedia(t *testing.T, cfg *config.Config, relPath, content string) string {
	t.Helper()

	path := filepath.Join(cfg.Paths.LibraryDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create media directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	return path
}

// WriteStub writes an executable shell script into dir and returns its path.
func WriteStub(t *testing.T, dir, name, script string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}
