package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPrepareDir_CreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "hls")

	removed, err := PrepareDir(dir, true)
	if err != nil {
		t.Fatalf("PrepareDir: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestPrepareDir_Clean(t *testing.T) {
	dir := t.TempDir()
	files := map[string]bool{
		"index.m3u8":     true,
		"index.m3u8.tmp": true,
		"segment_000.ts": true,
		"segment_001.ts": true,
		"README.txt":     false,
		"keep.json":      false,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "old.ts"), 0o755); err != nil {
		t.Fatal(err)
	}

	removed, err := PrepareDir(dir, true)
	if err != nil {
		t.Fatalf("PrepareDir: %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}
	for name, stale := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if stale && err == nil {
			t.Errorf("%s should have been removed", name)
		}
		if !stale && err != nil {
			t.Errorf("%s should have been kept: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "old.ts")); err != nil {
		t.Error("directories must never be removed")
	}
}

func TestPrepareDir_NoClean(t *testing.T) {
	dir := t.TempDir()
	seg := filepath.Join(dir, "segment_000.ts")
	if err := os.WriteFile(seg, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := PrepareDir(dir, false); err != nil {
		t.Fatalf("PrepareDir: %v", err)
	}
	if _, err := os.Stat(seg); err != nil {
		t.Error("segment removed although clean=false")
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.ts"), make([]byte, 100), 0o644)
	os.WriteFile(filepath.Join(dir, "b.ts"), make([]byte, 50), 0o644)
	os.Mkdir(filepath.Join(dir, "sub"), 0o755)
	os.WriteFile(filepath.Join(dir, "sub", "c.ts"), make([]byte, 1000), 0o644)

	size, err := DirSize(dir)
	if err != nil {
		t.Fatalf("DirSize: %v", err)
	}
	if size != 150 {
		t.Errorf("DirSize = %d, want 150", size)
	}
}
