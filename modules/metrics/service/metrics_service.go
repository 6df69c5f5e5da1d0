// Package service computes and persists RunMetrics (spec.md §3.1, §6.2)
// and aggregates them for the summary endpoint.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	"github.com/andreypavlenko/caesub/modules/metrics/model"
	workflowmodel "github.com/andreypavlenko/caesub/modules/workflow/model"
)

type Service struct {
	dataRoot string
}

func NewService(dataRoot string) *Service {
	return &Service{dataRoot: dataRoot}
}

func (s *Service) metricsPath(runID string) string {
	return filepath.Join(s.dataRoot, "runs", runID, "metrics.json")
}

// ClassifySource maps one plan item's outcome to the source taxonomy
// spec.md §3.1 lists. A decision folded in by a Decision Pack (human hint
// present, no applied learning hint) counts as manual; everything else
// traces back to the automatic matching engine or a learning hint it
// consulted.
func ClassifySource(outcome matchingmodel.Outcome, batch bool) model.Source {
	switch {
	case len(outcome.AppliedHints) > 0:
		return model.SourceLearningHintResolved
	case outcome.HumanHint != "" && len(outcome.HumanHint) >= 7 && outcome.HumanHint[:7] == "applied":
		return model.SourcePresetApplied
	case outcome.HumanHint != "":
		if batch {
			return model.SourceManualBatch
		}
		return model.SourceManualSingle
	default:
		return model.SourceAutoMatching
	}
}

// Record builds and persists the RunMetrics artifact for one completed
// run, tallying the plan's items by decision and by source.
func (s *Service) Record(ctx context.Context, plan *workflowmodel.Plan, result *workflowmodel.ApplyResult, startedAt, finishedAt time.Time) error {
	m := &model.RunMetrics{
		RunID:           result.Summary.RunID,
		PlanID:          plan.PlanID,
		TotalItems:      len(plan.Items),
		DecisionsCount:  map[string]int{},
		SourceBreakdown: map[string]int{},
		Timestamps:      model.Timestamps{StartedAt: startedAt.UTC(), FinishedAt: &finishedAt},
	}
	batch := len(plan.Items) > 1
	for _, item := range plan.Items {
		m.DecisionsCount[string(item.Debug.Outcome.Decision)]++
		m.SourceBreakdown[string(ClassifySource(item.Debug.Outcome, batch))]++
	}
	return atomicstore.WriteJSON(s.metricsPath(m.RunID), m)
}

// Get reads one run's persisted metrics.
func (s *Service) Get(ctx context.Context, runID string) (*model.RunMetrics, error) {
	path := s.metricsPath(runID)
	if !atomicstore.Exists(path) {
		return nil, fmt.Errorf("metrics: no metrics recorded for run %s", runID)
	}
	var m model.RunMetrics
	if err := atomicstore.ReadJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Summary aggregates every run's metrics.json under runs/ into one tally,
// for GET /api/metrics/summary.
func (s *Service) Summary(ctx context.Context) (*model.Summary, error) {
	runsDir := filepath.Join(s.dataRoot, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Summary{DecisionsCount: map[string]int{}, SourceBreakdown: map[string]int{}}, nil
		}
		return nil, err
	}

	out := &model.Summary{DecisionsCount: map[string]int{}, SourceBreakdown: map[string]int{}}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var m model.RunMetrics
		path := filepath.Join(runsDir, e.Name(), "metrics.json")
		if !atomicstore.Exists(path) {
			continue
		}
		if err := atomicstore.ReadJSON(path, &m); err != nil {
			continue
		}
		out.RunCount++
		out.TotalItems += m.TotalItems
		for k, v := range m.DecisionsCount {
			out.DecisionsCount[k] += v
		}
		for k, v := range m.SourceBreakdown {
			out.SourceBreakdown[k] += v
		}
	}
	return out, nil
}
