package service

import (
	"context"
	"testing"
	"time"

	"github.com/andreypavlenko/caesub/modules/learning/model"
	"github.com/andreypavlenko/caesub/modules/learning/repository"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo := repository.NewHintStore(t.TempDir())
	return NewService(repo, func() time.Time { return time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC) })
}

// TestResolveExactUniqueResolves covers testable property #6: a single
// enabled EXACT hint resolves the match outright at confidence 1.0.
func TestResolveExactUniqueResolves(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	mapping := model.LearnedMapping{TypeIDExpected: "T104", LocalDocID: "doc-1"}
	cond := model.Conditions{SubjectKey: "ACME"}
	if _, err := svc.Learn(ctx, "fp-1", mapping, cond, model.StrengthExact, "decision_pack", "plan-1", "pack-1"); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	result, err := svc.Resolve(ctx, "fp-1", cond)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Effect != EffectResolved {
		t.Fatalf("got effect %s, want resolved", result.Effect)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("got confidence %v, want 1.0", result.Confidence)
	}
	if result.Mapping == nil || result.Mapping.LocalDocID != "doc-1" {
		t.Fatalf("unexpected mapping %+v", result.Mapping)
	}
}

func TestResolveAmbiguousExactBoostsInsteadOfResolving(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cond := model.Conditions{SubjectKey: "ACME"}
	if _, err := svc.Learn(ctx, "fp-1", model.LearnedMapping{LocalDocID: "doc-1"}, cond, model.StrengthExact, "decision_pack", "plan-1", "pack-1"); err != nil {
		t.Fatalf("Learn 1: %v", err)
	}
	if _, err := svc.Learn(ctx, "fp-1", model.LearnedMapping{LocalDocID: "doc-2"}, cond, model.StrengthExact, "decision_pack", "plan-2", "pack-2"); err != nil {
		t.Fatalf("Learn 2: %v", err)
	}

	result, err := svc.Resolve(ctx, "fp-1", cond)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Effect != EffectBoosted {
		t.Fatalf("got effect %s, want boosted for ambiguous exact hints", result.Effect)
	}
	if result.Mapping != nil {
		t.Fatalf("ambiguous exact hints must not pin a mapping, got %+v", result.Mapping)
	}
	if result.Confidence != 0.4 {
		t.Fatalf("got confidence %v, want 0.4 (two hints x 0.2)", result.Confidence)
	}
	if len(result.MatchedHints) != 2 {
		t.Fatalf("got %d matched hints, want 2", len(result.MatchedHints))
	}
}

func TestResolveSoftHintsBoostWithoutForcingMapping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cond := model.Conditions{PortalTypeLabelNormalized: "ultimo recibo"}
	if _, err := svc.Learn(ctx, "fp-other", model.LearnedMapping{LocalDocID: "doc-9"}, cond, model.StrengthSoft, "decision_pack", "plan-1", "pack-1"); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	result, err := svc.Resolve(ctx, "fp-1", cond)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Effect != EffectBoosted {
		t.Fatalf("got effect %s, want boosted", result.Effect)
	}
	if result.Mapping != nil {
		t.Fatalf("soft boost must not force a mapping, got %+v", result.Mapping)
	}
	if result.Confidence <= 0 {
		t.Fatalf("expected positive boost, got %v", result.Confidence)
	}
}

func TestResolveDisabledHintIsIgnored(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cond := model.Conditions{SubjectKey: "ACME"}
	hint, err := svc.Learn(ctx, "fp-1", model.LearnedMapping{LocalDocID: "doc-1"}, cond, model.StrengthExact, "decision_pack", "plan-1", "pack-1")
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if err := svc.Disable(ctx, hint.HintID); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	result, err := svc.Resolve(ctx, "fp-1", cond)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Effect != EffectIgnored {
		t.Fatalf("got effect %s, want ignored", result.Effect)
	}
}

func TestLearnIsIdempotentOnHintID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cond := model.Conditions{SubjectKey: "ACME"}
	mapping := model.LearnedMapping{LocalDocID: "doc-1"}
	h1, err := svc.Learn(ctx, "fp-1", mapping, cond, model.StrengthExact, "decision_pack", "plan-1", "pack-1")
	if err != nil {
		t.Fatalf("Learn 1: %v", err)
	}
	h2, err := svc.Learn(ctx, "fp-1", mapping, cond, model.StrengthExact, "decision_pack", "plan-2", "pack-2")
	if err != nil {
		t.Fatalf("Learn 2: %v", err)
	}
	if h1.HintID != h2.HintID {
		t.Fatalf("expected same hint_id for equivalent content, got %s vs %s", h1.HintID, h2.HintID)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected idempotent append to leave exactly one hint, got %d", len(all))
	}
}
