package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/caesub/modules/jobqueue/model"
)

func TestJobStoreCreateGetUpdate(t *testing.T) {
	store := NewJobStore(t.TempDir())
	ctx := context.Background()

	job := &model.Job{JobID: "job-1", PlanID: "plan-1", Status: model.StatusQueued, CreatedAt: time.Now()}
	require.NoError(t, store.Create(ctx, job))

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusQueued, got.Status)

	got.Status = model.StatusRunning
	require.NoError(t, store.Update(ctx, got))

	got, err = store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusRunning, got.Status)

	_, err = store.GetByID(ctx, "missing")
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestJobStoreListByStatusIsFIFO(t *testing.T) {
	store := NewJobStore(t.TempDir())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		job := &model.Job{JobID: id, Status: model.StatusQueued, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.Create(ctx, job))
	}

	queued, err := store.ListByStatus(ctx, model.StatusQueued)
	require.NoError(t, err)
	require.Len(t, queued, 3)
	require.Equal(t, []string{"c", "a", "b"}, []string{queued[0].JobID, queued[1].JobID, queued[2].JobID})
}
