// Package ports declares the Job Queue's storage seam.
package ports

import (
	"context"

	"github.com/andreypavlenko/caesub/modules/jobqueue/model"
)

type JobRepository interface {
	Create(ctx context.Context, j *model.Job) error
	GetByID(ctx context.Context, jobID string) (*model.Job, error)
	Update(ctx context.Context, j *model.Job) error
	List(ctx context.Context) ([]*model.Job, error)
	// ListByStatus returns jobs in a given status, oldest created_at first —
	// the FIFO order the resume scan and the worker pool both rely on.
	ListByStatus(ctx context.Context, status model.Status) ([]*model.Job, error)
}
