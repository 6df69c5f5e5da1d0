// Package atomicstore is the persistence primitive every repository in this
// module is built on (spec §4.1, §6.2): "all writes go through a
// write-temp-then-rename primitive". There is no relational store in this
// system (see DESIGN.md) — the filesystem, written to atomically, is the
// single source of truth, and readers that race a writer always see either
// the previous complete version or the new one, never a partial file.
package atomicstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON marshals v as indented JSON and writes it to path using a
// sibling ".tmp" file, fsync, then rename — so a crash mid-write never
// leaves a torn file at path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("atomicstore: marshal %s: %w", path, err)
	}
	return WriteFile(path, data)
}

// WriteFile writes raw bytes to path atomically (temp file + fsync + rename).
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicstore: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("atomicstore: create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("atomicstore: write temp %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("atomicstore: fsync temp %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomicstore: close temp %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomicstore: rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// ReadJSON reads and unmarshals the JSON document at path.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("atomicstore: unmarshal %s: %w", path, err)
	}
	return nil
}

// AppendLine appends a single line (plus newline) to path, creating it if
// necessary. Used for append-only JSONL artifacts: the learning hints log
// (spec §4.2.2) and the run trace (spec §6.4). Appends are not individually
// fsynced-and-renamed — they are monotonic by construction (new lines never
// invalidate old ones) so a torn last line on crash is tolerable and is
// skipped by readers that fail to parse it.
func AppendLine(path string, line []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicstore: mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("atomicstore: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("atomicstore: append %s: %w", path, err)
	}
	return f.Sync()
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
