package ports

import (
	"context"

	"github.com/andreypavlenko/caesub/modules/runs/model"
)

// RunRepository persists HeadfulRun manifests (spec.md §6.2:
// runs/<run_id>/run_manifest.json).
type RunRepository interface {
	Create(ctx context.Context, r *model.HeadfulRun) error
	Update(ctx context.Context, r *model.HeadfulRun) error
	GetByID(ctx context.Context, runID string) (*model.HeadfulRun, error)
	List(ctx context.Context) ([]*model.HeadfulRun, error)
}
