package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/caesub/modules/jobqueue/model"
	"github.com/andreypavlenko/caesub/modules/jobqueue/repository"
	workflowmodel "github.com/andreypavlenko/caesub/modules/workflow/model"
)

type fakeApplier struct {
	devMode bool
	result  *workflowmodel.ApplyResult
	err     error
	delay   time.Duration
	calls   int
}

func (f *fakeApplier) Apply(ctx context.Context, req workflowmodel.ApplyRequest, devMode, hasUploaderHeader bool) (*workflowmodel.ApplyResult, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeApplier) DevMode() bool { return f.devMode }

func waitForTerminal(t *testing.T, svc *Service, jobID string) *model.Job {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		job, err := svc.GetByID(ctx, jobID)
		require.NoError(t, err)
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestEnqueueRunsJobToSuccess(t *testing.T) {
	repo := repository.NewJobStore(t.TempDir())
	applier := &fakeApplier{devMode: true, result: &workflowmodel.ApplyResult{Summary: workflowmodel.ApplySummary{Success: 1}}}
	svc := NewService(repo, applier, nil, time.Now)
	ctx := context.Background()
	require.NoError(t, svc.StartWorkers(ctx, 1))

	job, err := svc.Enqueue(ctx, workflowmodel.ApplyRequest{PlanID: "plan-1", ClientRequestID: "req-1"})
	require.NoError(t, err)

	finished := waitForTerminal(t, svc, job.JobID)
	require.Equal(t, model.StatusSucceeded, finished.Status)
	require.NotNil(t, finished.StartedAt)
	require.NotNil(t, finished.FinishedAt)
}

func TestEnqueueRunsJobToFailed(t *testing.T) {
	repo := repository.NewJobStore(t.TempDir())
	applier := &fakeApplier{devMode: true, err: errors.New("upload boom")}
	svc := NewService(repo, applier, nil, time.Now)
	ctx := context.Background()
	require.NoError(t, svc.StartWorkers(ctx, 1))

	job, err := svc.Enqueue(ctx, workflowmodel.ApplyRequest{PlanID: "plan-2", ClientRequestID: "req-2"})
	require.NoError(t, err)

	finished := waitForTerminal(t, svc, job.JobID)
	require.Equal(t, model.StatusFailed, finished.Status)
	require.Equal(t, "upload boom", finished.Error)
}

func TestCancelQueuedJobSkipsExecution(t *testing.T) {
	repo := repository.NewJobStore(t.TempDir())
	applier := &fakeApplier{devMode: true, result: &workflowmodel.ApplyResult{}}
	// no workers started: job stays QUEUED until we cancel it.
	svc := NewService(repo, applier, nil, time.Now)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, workflowmodel.ApplyRequest{PlanID: "plan-3", ClientRequestID: "req-3"})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, job.JobID))

	got, err := svc.GetByID(ctx, job.JobID)
	require.NoError(t, err)
	require.Equal(t, model.StatusCanceled, got.Status)
	require.Equal(t, 0, applier.calls)

	err = svc.Cancel(ctx, job.JobID)
	require.ErrorIs(t, err, model.ErrJobAlreadyTerminal)
}

func TestResumeIncompleteReenqueuesQueuedJobs(t *testing.T) {
	root := t.TempDir()
	repo := repository.NewJobStore(root)
	ctx := context.Background()

	stale := &model.Job{JobID: "stale-1", PlanID: "plan-4", Status: model.StatusQueued, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, stale))

	applier := &fakeApplier{devMode: true, result: &workflowmodel.ApplyResult{}}
	svc := NewService(repo, applier, nil, time.Now)
	require.NoError(t, svc.StartWorkers(ctx, 1))

	finished := waitForTerminal(t, svc, "stale-1")
	require.Equal(t, model.StatusSucceeded, finished.Status)
}
