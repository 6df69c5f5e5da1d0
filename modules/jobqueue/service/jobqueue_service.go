// Package service implements the Job Queue of spec.md §4.6: a FIFO queue
// of Apply requests, a worker pool that runs independent plans
// concurrently, crash-safe resume of QUEUED jobs at startup, and
// cooperative cancellation. Same-plan exclusion comes from the workflow
// service's per-plan lock: a job whose plan is already being applied is
// marked FAILED rather than waiting for the lock.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andreypavlenko/caesub/internal/platform/notify"
	"github.com/andreypavlenko/caesub/modules/jobqueue/model"
	"github.com/andreypavlenko/caesub/modules/jobqueue/ports"
	workflowmodel "github.com/andreypavlenko/caesub/modules/workflow/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Applier is the seam into modules/workflow/service.Service.Apply, kept
// narrow so this package never imports the full workflow service surface.
type Applier interface {
	Apply(ctx context.Context, req workflowmodel.ApplyRequest, devMode, hasUploaderHeader bool) (*workflowmodel.ApplyResult, error)
	DevMode() bool
}

type Service struct {
	repo    ports.JobRepository
	applier Applier
	notify  *notify.Client
	clock   func() time.Time

	queue      chan string // job_id, buffered FIFO dispatch
	cancel     sync.Map    // job_id -> context.CancelFunc, set only while RUNNING
	workersOnce sync.Once
	workers    *errgroup.Group // tracks the worker pool so Wait can block for a clean drain
}

func NewService(repo ports.JobRepository, applier Applier, notifier *notify.Client, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, applier: applier, notify: notifier, clock: clock, queue: make(chan string, 4096)}
}

// StartWorkers launches n worker goroutines that drain the FIFO queue, and
// performs the crash-safe resume scan: every job left QUEUED from a prior
// process (spec.md §4.6) is re-enqueued before new work is accepted.
func (s *Service) StartWorkers(ctx context.Context, n int) error {
	if n <= 0 {
		n = 1
	}
	queued, err := s.repo.ListByStatus(ctx, model.StatusQueued)
	if err != nil {
		return fmt.Errorf("jobqueue: resume scan: %w", err)
	}
	for _, j := range queued {
		s.queue <- j.JobID
	}
	s.workersOnce.Do(func() {
		group, workerCtx := errgroup.WithContext(ctx)
		s.workers = group
		for i := 0; i < n; i++ {
			group.Go(func() error {
				s.worker(workerCtx)
				return nil
			})
		}
	})
	return nil
}

// Wait blocks until every worker goroutine has returned, which happens once
// the context passed to StartWorkers is canceled. Callers use this to drain
// in-flight jobs before process exit instead of abandoning RUNNING jobs
// mid-upload.
func (s *Service) Wait() error {
	if s.workers == nil {
		return nil
	}
	return s.workers.Wait()
}

// Enqueue persists a new QUEUED job and appends it to the FIFO dispatch
// channel.
func (s *Service) Enqueue(ctx context.Context, req workflowmodel.ApplyRequest) (*model.Job, error) {
	job := &model.Job{
		JobID:     uuid.NewString(),
		PlanID:    req.PlanID,
		Request:   req,
		Status:    model.StatusQueued,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	s.queue <- job.JobID
	return job, nil
}

func (s *Service) GetByID(ctx context.Context, jobID string) (*model.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

func (s *Service) List(ctx context.Context) ([]*model.Job, error) {
	return s.repo.List(ctx)
}

// Cancel implements spec.md §4.6's cooperative cancellation: a QUEUED job
// is marked CANCELED outright, a RUNNING job has its context canceled and
// the worker observes it at the next per-item boundary.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return model.ErrJobAlreadyTerminal
	}
	if job.Status == model.StatusQueued {
		job.Status = model.StatusCanceled
		now := s.clock().UTC()
		job.FinishedAt = &now
		return s.repo.Update(ctx, job)
	}
	job.CancelAsked = true
	if err := s.repo.Update(ctx, job); err != nil {
		return err
	}
	if cancelFn, ok := s.cancel.Load(jobID); ok {
		cancelFn.(context.CancelFunc)()
	}
	return nil
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-s.queue:
			s.runJob(ctx, jobID)
		}
	}
}

func (s *Service) runJob(parent context.Context, jobID string) {
	job, err := s.repo.GetByID(parent, jobID)
	if err != nil || job.Status != model.StatusQueued {
		return // canceled or already gone before a worker picked it up
	}

	runCtx, cancel := context.WithCancel(parent)
	s.cancel.Store(jobID, cancel)
	defer func() {
		s.cancel.Delete(jobID)
		cancel()
	}()

	now := s.clock().UTC()
	job.Status = model.StatusRunning
	job.StartedAt = &now
	_ = s.repo.Update(runCtx, job)

	result, applyErr := s.applier.Apply(runCtx, job.Request, s.applier.DevMode(), true)

	finished := s.clock().UTC()
	job.FinishedAt = &finished
	switch {
	case runCtx.Err() != nil:
		job.Status = model.StatusCanceled
	case applyErr != nil:
		job.Status = model.StatusFailed
		job.Error = applyErr.Error()
	default:
		job.Status = model.StatusSucceeded
		job.Result = result
	}
	_ = s.repo.Update(runCtx, job)

	if s.notify != nil {
		success, failed, skipped := 0, 0, 0
		if result != nil {
			success, failed, skipped = result.Summary.Success, result.Summary.Failed, result.Summary.Skipped
		}
		_ = s.notify.JobFinished(context.Background(), job.JobID, job.PlanID, string(job.Status), success, failed, skipped)
	}
}
