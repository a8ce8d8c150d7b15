package jbeamsync

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFileFiresAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.jbeam")
	if err := os.WriteFile(path, []byte(`{"p": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 4)
	w, err := WatchFile(path, 50*time.Millisecond, func() { fired <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`{"p": {"nodes": []}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatalf("change never reported")
	}
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.jbeam")
	other := filepath.Join(dir, "other.jbeam")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 4)
	w, err := WatchFile(path, 30*time.Millisecond, func() { fired <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(other, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Fatalf("sibling file change reported")
	case <-time.After(300 * time.Millisecond):
	}
}
