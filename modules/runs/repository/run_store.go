// Package repository persists HeadfulRun manifests one atomic file per run
// at runs/<run_id>/run_manifest.json (spec.md §6.2).
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/runs/model"
)

type RunStore struct {
	root string
	mu   sync.Mutex
}

func NewRunStore(repositoryRoot string) *RunStore {
	return &RunStore{root: filepath.Join(repositoryRoot, "runs")}
}

func (s *RunStore) pathFor(runID string) string {
	return filepath.Join(s.root, runID, "run_manifest.json")
}

func (s *RunStore) Create(ctx context.Context, r *model.HeadfulRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicstore.WriteJSON(s.pathFor(r.RunID), r)
}

func (s *RunStore) Update(ctx context.Context, r *model.HeadfulRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicstore.WriteJSON(s.pathFor(r.RunID), r)
}

func (s *RunStore) GetByID(ctx context.Context, runID string) (*model.HeadfulRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r model.HeadfulRun
	if err := atomicstore.ReadJSON(s.pathFor(runID), &r); err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrRunNotFound
		}
		return nil, fmt.Errorf("runstore: read %s: %w", runID, err)
	}
	return &r, nil
}

func (s *RunStore) List(ctx context.Context) ([]*model.HeadfulRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("runstore: list %s: %w", s.root, err)
	}
	var runs []*model.HeadfulRun
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var r model.HeadfulRun
		if err := atomicstore.ReadJSON(s.pathFor(e.Name()), &r); err != nil {
			continue // manifest not yet written or torn; skip
		}
		runs = append(runs, &r)
	}
	return runs, nil
}
