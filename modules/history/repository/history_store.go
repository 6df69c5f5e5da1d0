// Package repository persists SubmissionRecords at
// history/<year>/<month>/<record_id>.json (spec.md §6.2), one atomic file
// per record, with records older than the retention window moved under
// history/archive/<year>/ (spec.md §9 Open Questions: archived, not purged,
// since dedupe correctness depends on retaining the fingerprint).
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/history/model"
)

type HistoryStore struct {
	root string
	mu   sync.Mutex
}

func NewHistoryStore(repositoryRoot string) *HistoryStore {
	return &HistoryStore{root: filepath.Join(repositoryRoot, "history")}
}

func (s *HistoryStore) pathFor(r *model.SubmissionRecord) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", r.CreatedAt.Year()), fmt.Sprintf("%02d", int(r.CreatedAt.Month())), r.RecordID+".json")
}

func (s *HistoryStore) Create(ctx context.Context, r *model.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicstore.WriteJSON(s.pathFor(r), r)
}

func (s *HistoryStore) Update(ctx context.Context, r *model.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicstore.WriteJSON(s.pathFor(r), r)
}

// List walks every active (non-archived) record, oldest directories first.
func (s *HistoryStore) List(ctx context.Context) ([]*model.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walk(s.root)
}

func (s *HistoryStore) walk(root string) ([]*model.SubmissionRecord, error) {
	var records []*model.SubmissionRecord
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			if entry.Name() == "archive" {
				continue // archived records are excluded from default dedupe scans
			}
			sub, err := s.walk(path)
			if err != nil {
				return nil, err
			}
			records = append(records, sub...)
			continue
		}
		var r model.SubmissionRecord
		if err := atomicstore.ReadJSON(path, &r); err != nil {
			continue
		}
		records = append(records, &r)
	}
	return records, nil
}

func (s *HistoryStore) FindByFingerprint(ctx context.Context, fingerprint string) ([]*model.SubmissionRecord, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []*model.SubmissionRecord
	for _, r := range all {
		if r.PendingFingerprint == fingerprint {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func (s *HistoryStore) NextSeq(ctx context.Context, runID string) (uint64, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	var max uint64
	for _, r := range all {
		if r.RunID == runID && r.Seq > max {
			max = r.Seq
		}
	}
	return max + 1, nil
}

// ArchiveOlderThan moves every record created before cutoff into
// history/archive/<year>/, per the retention decision in SPEC_FULL.md §9.
func (s *HistoryStore) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.walk(s.root)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			continue
		}
		src := s.pathFor(r)
		dst := filepath.Join(s.root, "archive", fmt.Sprintf("%04d", r.CreatedAt.Year()), r.RecordID+".json")
		if err := atomicstore.WriteJSON(dst, r); err != nil {
			return moved, err
		}
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
