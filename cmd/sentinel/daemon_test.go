package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	if err := writePIDFile(path, 4321); err != nil {
		t.Fatalf("write: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != 4321 {
		t.Fatalf("pid=%d want 4321", pid)
	}
}

func TestReadPIDFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := readPIDFile(path); err == nil {
		t.Fatalf("expected error for garbage pid file")
	}
}

func TestReadPIDFileMissing(t *testing.T) {
	if _, err := readPIDFile(filepath.Join(t.TempDir(), "absent.pid")); err == nil {
		t.Fatalf("expected error for missing pid file")
	}
}
