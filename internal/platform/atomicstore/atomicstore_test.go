package atomicstore

import (
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "sample.json")

	want := sample{Name: "cuota", Count: 3}
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got sample
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got != want {
		t.Errorf("got %+v want %+v", got, want)
	}
}

func TestWriteFileLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	if err := WriteFile(path, []byte(`{}`)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "doc.json" {
		t.Fatalf("expected only doc.json in %s, got %v", dir, entries)
	}
}

func TestWriteFileOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	if err := WriteFile(path, []byte("v1")); err != nil {
		t.Fatalf("WriteFile v1: %v", err)
	}
	if err := WriteFile(path, []byte("v2")); err != nil {
		t.Fatalf("WriteFile v2: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("got %q want v2", got)
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	var got sample
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &got)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAppendLineCreatesAndAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "hints.jsonl")

	if err := AppendLine(path, []byte(`{"n":1}`)); err != nil {
		t.Fatalf("AppendLine 1: %v", err)
	}
	if err := AppendLine(path, []byte(`{"n":2}`)); err != nil {
		t.Fatalf("AppendLine 2: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "{\"n\":1}\n{\"n\":2}\n"
	if string(data) != want {
		t.Errorf("got %q want %q", data, want)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")

	if Exists(path) {
		t.Fatal("expected Exists to be false before write")
	}
	if err := WriteFile(path, []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !Exists(path) {
		t.Fatal("expected Exists to be true after write")
	}
}

func TestFileLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storage-state.json")

	l1 := NewFileLock(path)
	ok, err := l1.TryLock()
	if err != nil {
		t.Fatalf("TryLock 1: %v", err)
	}
	if !ok {
		t.Fatal("expected first TryLock to succeed")
	}

	l2 := NewFileLock(path)
	ok, err = l2.TryLock()
	if err != nil {
		t.Fatalf("TryLock 2: %v", err)
	}
	if ok {
		t.Fatal("expected second TryLock to fail while first holds the lock")
	}

	if err := l1.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	ok, err = l2.TryLock()
	if err != nil {
		t.Fatalf("TryLock after unlock: %v", err)
	}
	if !ok {
		t.Fatal("expected TryLock to succeed after the first holder unlocked")
	}
	l2.Unlock()
}
