// Package repository persists Job Queue entries at jobs/<job_id>.json
// (an extension of spec.md §6.2's on-disk layout, DESIGN.md records the
// addition), one atomic file per job, mirroring the flat layout
// modules/rules/repository uses for its single-collection store.
package repository

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	"github.com/andreypavlenko/caesub/modules/jobqueue/model"
)

type JobStore struct {
	root string
	mu   sync.Mutex
}

func NewJobStore(repositoryRoot string) *JobStore {
	return &JobStore{root: filepath.Join(repositoryRoot, "jobs")}
}

func (s *JobStore) pathFor(jobID string) string {
	return filepath.Join(s.root, jobID+".json")
}

func (s *JobStore) Create(ctx context.Context, j *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicstore.WriteJSON(s.pathFor(j.JobID), j)
}

func (s *JobStore) Update(ctx context.Context, j *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicstore.WriteJSON(s.pathFor(j.JobID), j)
}

func (s *JobStore) GetByID(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !atomicstore.Exists(s.pathFor(jobID)) {
		return nil, model.ErrJobNotFound
	}
	var j model.Job
	if err := atomicstore.ReadJSON(s.pathFor(jobID), &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *JobStore) List(ctx context.Context) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listUnlocked()
}

func (s *JobStore) listUnlocked() ([]*model.Job, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var jobs []*model.Job
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var j model.Job
		if err := atomicstore.ReadJSON(filepath.Join(s.root, e.Name()), &j); err != nil {
			continue
		}
		jobs = append(jobs, &j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })
	return jobs, nil
}

// ListByStatus returns every job in status, oldest first — the order both
// the startup resume scan and the worker pool dispatch in (spec.md §4.6:
// "FIFO").
func (s *JobStore) ListByStatus(ctx context.Context, status model.Status) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.listUnlocked()
	if err != nil {
		return nil, err
	}
	var out []*model.Job
	for _, j := range all {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}
