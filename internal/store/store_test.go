package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreLoadAfterClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fib.store")

	s, err := Open(path, 5*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Store("fib-time-marker-colors", "42")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var db StoreDatabase
	if err := json.Unmarshal(b, &db); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if db.KeyVals["fib-time-marker-colors"] != "42" {
		t.Errorf("persisted value = %q, want 42", db.KeyVals["fib-time-marker-colors"])
	}

	s2, err := Open(path, 5*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	v, ok := s2.Load("fib-time-marker-colors")
	if !ok || v != "42" {
		t.Errorf("Load after reopen = (%q, %v), want (42, true)", v, ok)
	}
}

func TestStoreDebouncedFlush(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fib.store")

	s, err := Open(path, 10*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Store("a", "1")
	if _, err := os.Stat(path); err == nil {
		t.Error("expected no file before the debounce timer fires")
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist after debounce flush: %v", err)
	}
	s.Close()
}

func TestStoreLoadMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.store")

	s, err := Open(path, time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.Load("anything"); ok {
		t.Error("expected empty store for missing file")
	}
}

func TestStoreErase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fib.store")
	s, err := Open(path, time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Store("k", "v")
	s.Erase("k")
	if _, ok := s.Load("k"); ok {
		t.Error("expected key to be gone after Erase")
	}
	s.Close()
}
