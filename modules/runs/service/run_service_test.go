package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/caesub/modules/runs/model"
	"github.com/andreypavlenko/caesub/modules/runs/repository"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// TestStateMachineSafety covers testable property #10: execute_action is
// never admitted in CREATED, BROWSER_STARTED, CLOSED, or FAILED.
func TestStateMachineSafety(t *testing.T) {
	store := repository.NewRunStore(t.TempDir())
	svc := NewService(store, fixedClock(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	run, err := svc.Start(ctx, "platformA")
	require.NoError(t, err)
	require.Equal(t, model.StateCreated, run.State)

	_, err = svc.ExecuteAction(ctx, run.RunID, func(ctx context.Context) error { return nil })
	require.Error(t, err, "execute_action must not be admitted in CREATED")

	_, err = svc.MarkBrowserStarted(ctx, run.RunID)
	require.NoError(t, err)
	_, err = svc.ExecuteAction(ctx, run.RunID, func(ctx context.Context) error { return nil })
	require.Error(t, err, "execute_action must not be admitted in BROWSER_STARTED")

	_, err = svc.Authenticate(ctx, run.RunID)
	require.NoError(t, err)
	_, err = svc.MarkReady(ctx, run.RunID)
	require.NoError(t, err)

	ranAction := false
	run, err = svc.ExecuteAction(ctx, run.RunID, func(ctx context.Context) error { ranAction = true; return nil })
	require.NoError(t, err)
	require.True(t, ranAction)
	require.Equal(t, model.StateReady, run.State)

	_, err = svc.Close(ctx, run.RunID, nil)
	require.NoError(t, err)
	_, err = svc.ExecuteAction(ctx, run.RunID, func(ctx context.Context) error { return nil })
	require.Error(t, err, "execute_action must not be admitted in CLOSED")
}

// TestExecuteActionFailureTransitionsToFailed covers the EXECUTING -> FAILED
// edge of spec.md §4.4.
func TestExecuteActionFailureTransitionsToFailed(t *testing.T) {
	store := repository.NewRunStore(t.TempDir())
	svc := NewService(store, fixedClock(time.Now()))
	ctx := context.Background()

	run, err := svc.Start(ctx, "platformA")
	require.NoError(t, err)
	_, err = svc.MarkBrowserStarted(ctx, run.RunID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, run.RunID)
	require.NoError(t, err)
	_, err = svc.MarkReady(ctx, run.RunID)
	require.NoError(t, err)

	run, err = svc.ExecuteAction(ctx, run.RunID, func(ctx context.Context) error { return context.DeadlineExceeded })
	require.Error(t, err)
	require.Equal(t, model.StateFailed, run.State)
	require.Equal(t, model.RiskHigh, run.RiskLevel)
}

// TestRiskLevelRecomputation covers the risk-level rule of spec.md §4.4.
func TestRiskLevelRecomputation(t *testing.T) {
	run := &model.HeadfulRun{WarningOrActionThreshold: 3}
	now := time.Now()
	run.AppendEvent(model.LevelInfo, "a", now)
	require.Equal(t, model.RiskLow, run.RiskLevel)

	for i := 0; i < 4; i++ {
		run.AppendEvent(model.LevelWarning, "w", now)
	}
	require.Equal(t, model.RiskMedium, run.RiskLevel)

	run.AppendEvent(model.LevelError, "e", now)
	require.Equal(t, model.RiskHigh, run.RiskLevel)
}
