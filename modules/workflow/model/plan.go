// Package model holds the Policy + Plan + Apply workflow's wire and
// storage shapes (spec.md §4.5): the read-only Plan (snapshot + decision
// per item), the human DecisionPack, and the gated Apply request/result.
package model

import (
	"time"

	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
)

// PlanItem pairs one scraped pending item with the debug report the
// Matching Engine produced for it (spec.md §4.5.1: "snapshot + decision per
// item").
type PlanItem struct {
	Pending matchingmodel.PendingRequirement  `json:"pending"`
	Debug   matchingmodel.MatchingDebugReport `json:"debug"`
}

// Summary tallies items by decision (spec.md §4.5.1).
type Summary struct {
	Total          int `json:"total"`
	AutoUpload     int `json:"auto_upload"`
	ReviewRequired int `json:"review_required"`
	NoMatch        int `json:"no_match"`
	Skip           int `json:"skip"`
}

// Summarize tallies a set of plan items into a Summary.
func Summarize(items []PlanItem) Summary {
	var s Summary
	s.Total = len(items)
	for _, it := range items {
		switch it.Debug.Outcome.Decision {
		case matchingmodel.DecisionAutoUpload:
			s.AutoUpload++
		case matchingmodel.DecisionReviewRequired:
			s.ReviewRequired++
		case matchingmodel.DecisionNoMatch:
			s.NoMatch++
		case matchingmodel.DecisionSkip:
			s.Skip++
		}
	}
	return s
}

// Plan is the output of plan/build_readonly and plan/build_auto_upload_plan
// (spec.md §4.5.1). Once sealed it is immutable: PlanRepository.Create
// refuses to overwrite an existing plan_id, and applying a Decision Pack
// produces a derived plan under a new plan_id rather than mutating this
// one (spec.md §5, "Plan and Decision Pack writes are monotonic").
type Plan struct {
	PlanID      string     `json:"plan_id"`
	PlatformKey string     `json:"platform_key"`
	CoordLabel  string     `json:"coord_label,omitempty"`
	CompanyKey  string     `json:"company_key,omitempty"`
	PersonKey   string     `json:"person_key,omitempty"`
	OnlyTarget  bool       `json:"only_target"`
	Items       []PlanItem `json:"items"`
	Summary     Summary    `json:"summary"`

	// DerivedFromPlanID and DecisionPackID are set only on a plan produced
	// by ApplyDecisionPack (spec.md §4.5.2): the original plan this one was
	// derived from, and the pack whose overrides were folded in.
	DerivedFromPlanID string `json:"derived_from_plan_id,omitempty"`
	DecisionPackID    string `json:"decision_pack_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ItemByKey finds the plan item with the given pending_item_key.
func (p *Plan) ItemByKey(key string) *PlanItem {
	for i := range p.Items {
		if p.Items[i].Pending.PendingItemKey == key {
			return &p.Items[i]
		}
	}
	return nil
}
