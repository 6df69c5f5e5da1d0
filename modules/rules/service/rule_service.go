// Package service implements SubmissionRule catalog CRUD plus the
// COORD > GLOBAL precedence resolution spec.md §3.1 requires.
package service

import (
	"context"
	"time"

	"github.com/andreypavlenko/caesub/modules/rules/model"
	"github.com/andreypavlenko/caesub/modules/rules/ports"
)

type Service struct {
	repo  ports.RuleRepository
	clock func() time.Time
}

func NewService(repo ports.RuleRepository, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, clock: clock}
}

func (s *Service) Create(ctx context.Context, r *model.SubmissionRule) error {
	now := s.clock().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	return s.repo.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, ruleID string) (*model.SubmissionRule, error) {
	return s.repo.GetByID(ctx, ruleID)
}

func (s *Service) List(ctx context.Context) ([]*model.SubmissionRule, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, r *model.SubmissionRule) error {
	r.UpdatedAt = s.clock().UTC()
	return s.repo.Update(ctx, r)
}

func (s *Service) Delete(ctx context.Context, ruleID string) error {
	return s.repo.Delete(ctx, ruleID)
}

// Resolve selects the applicable enabled rule for (platformKey,
// documentTypeID, coordLabel) with COORD > GLOBAL precedence (spec.md §3.1,
// testable property #5): a COORD rule for the same triple always wins over
// a GLOBAL rule; disabling the COORD rule falls back to GLOBAL.
func Resolve(rules []*model.SubmissionRule, platformKey, documentTypeID, coordLabel string) *model.SubmissionRule {
	var global, coord *model.SubmissionRule
	for _, r := range rules {
		if !r.Enabled || r.PlatformKey != platformKey || r.DocumentTypeID != documentTypeID {
			continue
		}
		switch r.Scope {
		case model.RuleScopeCoord:
			if r.CoordLabel == coordLabel {
				coord = r
			}
		case model.RuleScopeGlobal:
			global = r
		}
	}
	if coord != nil {
		return coord
	}
	return global
}
