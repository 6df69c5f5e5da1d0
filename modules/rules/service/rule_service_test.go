package service

import (
	"testing"

	"github.com/andreypavlenko/caesub/modules/rules/model"
)

func TestResolveCoordOverridesGlobal(t *testing.T) {
	global := &model.SubmissionRule{RuleID: "g1", PlatformKey: "acme", DocumentTypeID: "T1", Scope: model.RuleScopeGlobal, Enabled: true}
	coord := &model.SubmissionRule{RuleID: "c1", PlatformKey: "acme", DocumentTypeID: "T1", CoordLabel: "north", Scope: model.RuleScopeCoord, Enabled: true}

	got := Resolve([]*model.SubmissionRule{global, coord}, "acme", "T1", "north")
	if got != coord {
		t.Fatalf("expected COORD rule to win, got %v", got)
	}
}

func TestResolveFallsBackToGlobalWhenCoordDisabled(t *testing.T) {
	global := &model.SubmissionRule{RuleID: "g1", PlatformKey: "acme", DocumentTypeID: "T1", Scope: model.RuleScopeGlobal, Enabled: true}
	coord := &model.SubmissionRule{RuleID: "c1", PlatformKey: "acme", DocumentTypeID: "T1", CoordLabel: "north", Scope: model.RuleScopeCoord, Enabled: false}

	got := Resolve([]*model.SubmissionRule{global, coord}, "acme", "T1", "north")
	if got != global {
		t.Fatalf("expected GLOBAL fallback when COORD disabled, got %v", got)
	}
}

func TestResolveNoMatch(t *testing.T) {
	got := Resolve(nil, "acme", "T1", "north")
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
