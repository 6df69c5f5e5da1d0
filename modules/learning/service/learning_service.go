// Package service implements the Learning Hint Store lookup consulted by
// the Matching Engine (spec.md §4.2 step 6, §4.2.2).
package service

import (
	"context"
	"time"

	"github.com/andreypavlenko/caesub/modules/learning/model"
	"github.com/andreypavlenko/caesub/modules/learning/ports"
)

// Effect is what a hint lookup did to the match it was consulted for.
type Effect string

const (
	EffectNone     Effect = "none"
	EffectResolved Effect = "resolved"
	EffectBoosted  Effect = "boosted"
	EffectIgnored  Effect = "ignored"
)

const softBoostPerHint = 0.2

// ResolveResult is what Resolve reports back to the matching engine.
type ResolveResult struct {
	Effect       Effect
	Mapping      *model.LearnedMapping
	Confidence   float64
	MatchedHints []string
	IgnoredHints []string
}

type Service struct {
	repo  ports.HintRepository
	clock func() time.Time
}

func NewService(repo ports.HintRepository, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, clock: clock}
}

// Learn records a new hint from a Decision Pack outcome. Generation is
// idempotent on hint_id (spec.md §4.2.2): calling Learn twice with
// equivalent content is a no-op the second time.
func (s *Service) Learn(ctx context.Context, itemFingerprint string, mapping model.LearnedMapping, conditions model.Conditions, strength model.Strength, source, planID, decisionPackID string) (*model.LearnedHint, error) {
	h := &model.LearnedHint{
		HintID:          model.ComputeHintID(itemFingerprint, mapping, conditions, strength),
		ItemFingerprint: itemFingerprint,
		LearnedMapping:  mapping,
		Conditions:      conditions,
		Strength:        strength,
		Source:          source,
		PlanID:          planID,
		DecisionPackID:  decisionPackID,
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.repo.Append(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Disable(ctx context.Context, hintID string) error {
	return s.repo.Disable(ctx, hintID)
}

func (s *Service) List(ctx context.Context) ([]*model.LearnedHint, error) {
	return s.repo.List(ctx)
}

// Resolve is the pure lookup consulted before ranking (spec.md §4.2 step
// 6). It implements testable property #6:
//   - a single enabled EXACT hint whose item_fingerprint matches fp and
//     whose conditions match the lookup context resolves the match outright
//     at confidence 1.0 (effect "resolved");
//   - more than one such EXACT hint is ambiguous and does not resolve
//     outright; instead it folds into the soft-boost pool alongside any
//     SOFT hints (effect "boosted") rather than guessing a mapping;
//   - any number of applicable SOFT hints (or EXACT hints under a
//     different fingerprint sharing conditions) each add a flat confidence
//     boost without forcing a mapping (effect "boosted");
//   - a hint whose conditions apply but is disabled contributes to
//     IgnoredHints and nothing else (effect "ignored" when nothing else
//     applied).
func (s *Service) Resolve(ctx context.Context, fp string, conditions model.Conditions) (ResolveResult, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return ResolveResult{}, err
	}

	var exactMatches []*model.LearnedHint
	var softMatches []*model.LearnedHint
	var ignored []string

	for _, h := range all {
		applies := h.ItemFingerprint == fp || h.Conditions.Matches(conditions.SubjectKey, conditions.PersonKey, conditions.PeriodKey, conditions.PortalTypeLabelNormalized)
		if !applies {
			continue
		}
		if h.Disabled {
			ignored = append(ignored, h.HintID)
			continue
		}
		if h.Strength == model.StrengthExact && h.ItemFingerprint == fp && h.Conditions.Matches(conditions.SubjectKey, conditions.PersonKey, conditions.PeriodKey, conditions.PortalTypeLabelNormalized) {
			exactMatches = append(exactMatches, h)
		} else {
			softMatches = append(softMatches, h)
		}
	}

	switch {
	case len(exactMatches) == 1:
		m := exactMatches[0].LearnedMapping
		ids := []string{exactMatches[0].HintID}
		for _, h := range softMatches {
			ids = append(ids, h.HintID)
		}
		return ResolveResult{Effect: EffectResolved, Mapping: &m, Confidence: 1.0, MatchedHints: ids, IgnoredHints: ignored}, nil
	case len(exactMatches) > 1:
		// ambiguous: two decisions learned conflicting mappings for the
		// same item, fold into the soft-boost pool instead of guessing.
		softMatches = append(softMatches, exactMatches...)
		fallthrough
	case len(softMatches) > 0:
		boost := float64(len(softMatches)) * softBoostPerHint
		if boost > 1.0 {
			boost = 1.0
		}
		ids := make([]string, 0, len(softMatches))
		for _, h := range softMatches {
			ids = append(ids, h.HintID)
		}
		return ResolveResult{Effect: EffectBoosted, Confidence: boost, MatchedHints: ids, IgnoredHints: ignored}, nil
	case len(ignored) > 0:
		return ResolveResult{Effect: EffectIgnored, IgnoredHints: ignored}, nil
	default:
		return ResolveResult{Effect: EffectNone}, nil
	}
}
