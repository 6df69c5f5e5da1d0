// Package model holds RunMetrics (spec.md §3.1): the closing tally every
// HeadfulRun writes to runs/<run_id>/metrics.json alongside its trace log.
package model

import "time"

// Source classifies how a plan item's upload decision was reached, for
// the source_breakdown tally spec.md §3.1 requires.
type Source string

const (
	SourceAutoMatching        Source = "auto_matching"
	SourceLearningHintResolved Source = "learning_hint_resolved"
	SourcePresetApplied        Source = "preset_applied"
	SourceManualSingle         Source = "manual_single"
	SourceManualBatch          Source = "manual_batch"
)

// RunMetrics is the per-run metrics artifact (spec.md §3.1, §6.2).
type RunMetrics struct {
	RunID           string         `json:"run_id"`
	PlanID          string         `json:"plan_id"`
	TotalItems      int            `json:"total_items"`
	DecisionsCount  map[string]int `json:"decisions_count"`
	SourceBreakdown map[string]int `json:"source_breakdown"`
	Timestamps      Timestamps     `json:"timestamps"`
}

// Timestamps brackets a run's lifetime for duration reporting.
type Timestamps struct {
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Summary aggregates RunMetrics across every run on disk, for
// GET /api/metrics/summary.
type Summary struct {
	RunCount        int            `json:"run_count"`
	TotalItems      int            `json:"total_items"`
	DecisionsCount  map[string]int `json:"decisions_count"`
	SourceBreakdown map[string]int `json:"source_breakdown"`
}
