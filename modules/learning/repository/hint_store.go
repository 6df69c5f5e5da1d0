// Package repository persists LearnedHints the way spec.md §6.2 lays out
// the learning artifacts: an append-only log (learning/hints.jsonl) as the
// source of truth, a materialized index (learning/hints_index.json) kept in
// sync for O(1) lookup by hint_id, and a tombstone file
// (learning/hints_tombstones.json) so disabling a hint never requires
// rewriting the append-only log.
package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/learning/model"
)

type HintStore struct {
	logPath        string
	indexPath      string
	tombstonesPath string
	mu             sync.Mutex
}

func NewHintStore(repositoryRoot string) *HintStore {
	dir := filepath.Join(repositoryRoot, "learning")
	return &HintStore{
		logPath:        filepath.Join(dir, "hints.jsonl"),
		indexPath:      filepath.Join(dir, "hints_index.json"),
		tombstonesPath: filepath.Join(dir, "hints_tombstones.json"),
	}
}

func (s *HintStore) loadIndex() (map[string]*model.LearnedHint, error) {
	index := map[string]*model.LearnedHint{}
	if !atomicstore.Exists(s.indexPath) {
		return index, nil
	}
	if err := atomicstore.ReadJSON(s.indexPath, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *HintStore) loadTombstones() (map[string]bool, error) {
	tombstones := map[string]bool{}
	if !atomicstore.Exists(s.tombstonesPath) {
		return tombstones, nil
	}
	if err := atomicstore.ReadJSON(s.tombstonesPath, &tombstones); err != nil {
		return nil, err
	}
	return tombstones, nil
}

// Append writes h to the append-only log and refreshes the index. A hint
// whose HintID is already present is a no-op — generation is idempotent on
// hint_id (spec.md §4.2.2).
func (s *HintStore) Append(ctx context.Context, h *model.LearnedHint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, exists := index[h.HintID]; exists {
		return nil
	}

	line, err := json.Marshal(h)
	if err != nil {
		return err
	}
	if err := atomicstore.AppendLine(s.logPath, line); err != nil {
		return err
	}
	index[h.HintID] = h
	return atomicstore.WriteJSON(s.indexPath, index)
}

// List returns every hint in the index with Disabled set from the
// tombstone file. When the index is missing or empty and the append-only log
// exists, the index is rebuilt from the log; a non-empty index that lags the
// log is used as it is.
func (s *HintStore) List(ctx context.Context) ([]*model.LearnedHint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	if len(index) == 0 && atomicstore.Exists(s.logPath) {
		index, err = s.rebuildIndexFromLog()
		if err != nil {
			return nil, err
		}
	}
	tombstones, err := s.loadTombstones()
	if err != nil {
		return nil, err
	}

	hints := make([]*model.LearnedHint, 0, len(index))
	for id, h := range index {
		h.Disabled = h.Disabled || tombstones[id]
		hints = append(hints, h)
	}
	return hints, nil
}

func (s *HintStore) rebuildIndexFromLog() (map[string]*model.LearnedHint, error) {
	f, err := os.Open(s.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*model.LearnedHint{}, nil
		}
		return nil, err
	}
	defer f.Close()

	index := map[string]*model.LearnedHint{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var h model.LearnedHint
		if err := json.Unmarshal(line, &h); err != nil {
			continue // tolerate a torn trailing line from a crash mid-append
		}
		index[h.HintID] = &h
	}
	if err := atomicstore.WriteJSON(s.indexPath, index); err != nil {
		return nil, err
	}
	return index, nil
}

// Disable tombstones hintID without touching the append-only log.
func (s *HintStore) Disable(ctx context.Context, hintID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tombstones, err := s.loadTombstones()
	if err != nil {
		return err
	}
	tombstones[hintID] = true
	return atomicstore.WriteJSON(s.tombstonesPath, tombstones)
}
