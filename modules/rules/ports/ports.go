package ports

import (
	"context"

	"github.com/andreypavlenko/caesub/modules/rules/model"
)

type RuleRepository interface {
	Create(ctx context.Context, r *model.SubmissionRule) error
	GetByID(ctx context.Context, ruleID string) (*model.SubmissionRule, error)
	List(ctx context.Context) ([]*model.SubmissionRule, error)
	Update(ctx context.Context, r *model.SubmissionRule) error
	Delete(ctx context.Context, ruleID string) error
}
