package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	workflowmodel "github.com/andreypavlenko/caesub/modules/workflow/model"
)

func TestClassifySource(t *testing.T) {
	require.Equal(t, "auto_matching", string(ClassifySource(matchingmodel.Outcome{}, false)))

	hinted := matchingmodel.Outcome{AppliedHints: []matchingmodel.AppliedHint{{HintID: "h1", Effect: "resolved"}}}
	require.Equal(t, "learning_hint_resolved", string(ClassifySource(hinted, false)))

	preset := matchingmodel.Outcome{HumanHint: "applied preset annual-insurance"}
	require.Equal(t, "preset_applied", string(ClassifySource(preset, false)))

	manualSingle := matchingmodel.Outcome{HumanHint: "reviewed by operator"}
	require.Equal(t, "manual_single", string(ClassifySource(manualSingle, false)))
	require.Equal(t, "manual_batch", string(ClassifySource(manualSingle, true)))
}

func TestRecordAndGetRoundTrip(t *testing.T) {
	svc := NewService(t.TempDir())
	ctx := context.Background()

	plan := &workflowmodel.Plan{
		PlanID: "plan-1",
		Items: []workflowmodel.PlanItem{
			{Debug: matchingmodel.MatchingDebugReport{Outcome: matchingmodel.Outcome{Decision: matchingmodel.DecisionAutoUpload}}},
			{Debug: matchingmodel.MatchingDebugReport{Outcome: matchingmodel.Outcome{Decision: matchingmodel.DecisionSkip}}},
		},
	}
	result := &workflowmodel.ApplyResult{Summary: workflowmodel.ApplySummary{RunID: "run-1"}}
	started := time.Now().Add(-time.Minute)
	finished := time.Now()

	require.NoError(t, svc.Record(ctx, plan, result, started, finished))

	m, err := svc.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, 2, m.TotalItems)
	require.Equal(t, 1, m.DecisionsCount[string(matchingmodel.DecisionAutoUpload)])
	require.Equal(t, 1, m.DecisionsCount[string(matchingmodel.DecisionSkip)])

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.RunCount)
	require.Equal(t, 2, summary.TotalItems)
}

func TestGetMissingRun(t *testing.T) {
	svc := NewService(t.TempDir())
	_, err := svc.Get(context.Background(), "does-not-exist")
	require.Error(t, err)
}
