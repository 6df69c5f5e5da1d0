// Package ports declares the storage seams the Policy + Plan + Apply
// workflow depends on, following the same ports/repository split every
// other module in this tree uses.
package ports

import (
	"context"

	"github.com/andreypavlenko/caesub/modules/workflow/model"
)

// PlanRepository persists sealed Plan artifacts. Create must reject a
// plan_id that already exists (spec.md §5: "a plan file, once sealed, is
// immutable").
type PlanRepository interface {
	Create(ctx context.Context, p *model.Plan) error
	GetByID(ctx context.Context, planID string) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
}

// DecisionPackRepository persists Decision Packs, append-only per plan.
type DecisionPackRepository interface {
	Create(ctx context.Context, pack *model.DecisionPack) error
	GetByID(ctx context.Context, decisionPackID string) (*model.DecisionPack, error)
	ListByPlan(ctx context.Context, planID string) ([]*model.DecisionPack, error)
}

// PresetRepository resolves named presets (spec.md §4.5.2 APPLY_PRESET).
type PresetRepository interface {
	GetByName(ctx context.Context, name string) (*model.Preset, error)
}
