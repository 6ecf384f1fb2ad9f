package runcshim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiver_Validate(t *testing.T) {
	fs := newFakeFileOps()
	a := NewArchiver(fs)

	fs.files["/ckpt/dump.log"] = []byte("line one\n\nDumping finished successfully\n")
	if !a.Validate("/ckpt") {
		t.Fatalf("expected validate true")
	}

	fs.files["/ckpt/dump.log"] = []byte("Error: dump failed\n")
	if a.Validate("/ckpt") {
		t.Fatalf("expected validate false on failure marker")
	}

	delete(fs.files, "/ckpt/dump.log")
	if a.Validate("/ckpt") {
		t.Fatalf("expected validate false when dump.log missing")
	}
}

func TestArchiver_SaveAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	upperdir := filepath.Join(dir, "fs")
	if err := os.MkdirAll(filepath.Join(upperdir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(upperdir, "sub", "file.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewDefaultFileOps()
	a := NewArchiver(fs)
	ckptDir := filepath.Join(dir, "ckpt")

	if !a.Save(context.Background(), upperdir, ckptDir) {
		t.Fatalf("expected save to succeed")
	}
	if !fs.Exists(filepath.Join(ckptDir, checkpointArchiveName)) {
		t.Fatalf("expected archive file to exist")
	}

	restoreDest := filepath.Join(dir, "restored")
	if err := os.MkdirAll(restoreDest, 0o755); err != nil {
		t.Fatal(err)
	}
	if !a.Restore(context.Background(), ckptDir, restoreDest) {
		t.Fatalf("expected restore to succeed")
	}
	data, err := os.ReadFile(filepath.Join(restoreDest, "sub", "file.txt"))
	if err != nil {
		t.Fatalf("expected restored file to exist: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want hello", data)
	}
	if _, err := os.Stat(filepath.Join(restoreDest, "fs.bak")); !os.IsNotExist(err) {
		t.Fatalf("expected fs.bak to be cleaned up")
	}
}

func TestArchiver_Restore_MissingArchive(t *testing.T) {
	fs := newFakeFileOps()
	a := NewArchiver(fs)
	if a.Restore(context.Background(), "/nope", "/also-nope") {
		t.Fatalf("expected restore false when archive dir missing")
	}
}

func TestArchiver_Cleanup_IdempotentOnMissing(t *testing.T) {
	fs := newFakeFileOps()
	a := NewArchiver(fs)
	if !a.Cleanup("/does/not/exist") {
		t.Fatalf("expected cleanup to be idempotent success on missing dir")
	}
}

func TestStripFirstComponent(t *testing.T) {
	if got := stripFirstComponent("fs/sub/file.txt"); got != "sub/file.txt" {
		t.Fatalf("got %q", got)
	}
	if got := stripFirstComponent("fs"); got != "" {
		t.Fatalf("expected empty for root-only entry, got %q", got)
	}
}
