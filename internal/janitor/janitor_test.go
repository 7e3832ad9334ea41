package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filewarp/filewarp/internal/cleanup"
)

func TestSweepExpiresOldArtifacts(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.webp")
	fresh := filepath.Join(dir, "fresh.webp")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	j, err := New(dir, time.Hour, time.Minute, cleanup.New(3, 10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer j.Close()

	j.Scan()
	j.Sweep()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(old); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expired artifact was not removed")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh artifact removed: %v", err)
	}
}

func TestSweepNothingExpired(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "recent.mp3")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	j, err := New(dir, time.Hour, time.Minute, cleanup.New(1, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer j.Close()

	j.Scan()
	j.Sweep()

	if _, err := os.Stat(p); err != nil {
		t.Errorf("recent artifact removed: %v", err)
	}
}
