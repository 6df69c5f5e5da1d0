// Package service implements the HeadfulRun lifecycle of spec.md §4.4: a
// run-level mutex admitting one execute_action at a time, and the
// CREATED -> BROWSER_STARTED -> AUTHENTICATED -> READY <-> EXECUTING ->
// CLOSED transitions (FAILED reachable from any non-terminal state).
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andreypavlenko/caesub/internal/coreerr"
	"github.com/andreypavlenko/caesub/internal/portal/connector"
	"github.com/andreypavlenko/caesub/modules/runs/model"
	"github.com/andreypavlenko/caesub/modules/runs/ports"
	"github.com/google/uuid"
)

// Clock abstracts "now" so the state machine's timestamps are injectable in
// tests, the same seam the Validity Calculator and Matching Engine use.
type Clock func() time.Time

type Service struct {
	repo      ports.RunRepository
	clock     Clock
	runLocks  sync.Map // run_id -> *sync.Mutex, one action admitted at a time
}

func NewService(repo ports.RunRepository, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, clock: clock}
}

func (s *Service) lockFor(runID string) *sync.Mutex {
	l, _ := s.runLocks.LoadOrStore(runID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Start creates and persists a run in state CREATED (spec.md §4.4); the
// caller advances it with MarkBrowserStarted once its connector is open.
func (s *Service) Start(ctx context.Context, platformKey string) (*model.HeadfulRun, error) {
	now := s.clock()
	run := &model.HeadfulRun{
		RunID:       uuid.NewString(),
		PlatformKey: platformKey,
		State:       model.StateCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	run.AppendEvent(model.LevelInfo, "run created", now)
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("runservice: create: %w", err)
	}
	return run, nil
}

// MarkBrowserStarted transitions CREATED -> BROWSER_STARTED once the driver
// has launched and loaded or created the storage state.
func (s *Service) MarkBrowserStarted(ctx context.Context, runID string) (*model.HeadfulRun, error) {
	return s.transition(ctx, runID, model.StateBrowserStarted, func(r *model.HeadfulRun) {
		r.AppendEvent(model.LevelInfo, "browser started", s.clock())
	})
}

// Authenticate transitions BROWSER_STARTED -> AUTHENTICATED once the
// connector verifies a known authenticated URL/selector.
func (s *Service) Authenticate(ctx context.Context, runID string) (*model.HeadfulRun, error) {
	return s.transition(ctx, runID, model.StateAuthenticated, func(r *model.HeadfulRun) {
		r.AppendEvent(model.LevelSuccess, "authenticated", s.clock())
	})
}

// MarkReady transitions AUTHENTICATED -> READY after blockers are
// dismissed and the pending grid validated.
func (s *Service) MarkReady(ctx context.Context, runID string) (*model.HeadfulRun, error) {
	return s.transition(ctx, runID, model.StateReady, func(r *model.HeadfulRun) {
		r.AppendEvent(model.LevelInfo, "ready", s.clock())
	})
}

// ExecuteAction admits a single action while the run is READY, serialized
// by the run's own mutex (spec.md §4.4: "a single action is admitted at a
// time (run-level mutex)"), then resolves back to READY on success or
// FAILED on any terminal error returned by fn.
func (s *Service) ExecuteAction(ctx context.Context, runID string, fn func(ctx context.Context) error) (*model.HeadfulRun, error) {
	lock := s.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.CanExecuteAction() {
		return nil, coreerr.New(coreerr.CodeProposalValidationFailed, coreerr.StageProposalValidation, coreerr.SeverityError,
			fmt.Sprintf("execute_action is not admitted in state %s", run.State))
	}

	run.State = model.StateExecuting
	run.AppendEvent(model.LevelAction, "execute_action started", s.clock())
	if err := s.repo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("runservice: persist executing: %w", err)
	}

	actionErr := fn(ctx)

	if actionErr != nil {
		run.State = model.StateFailed
		run.AppendEvent(model.LevelError, fmt.Sprintf("execute_action failed: %v", actionErr), s.clock())
		_ = s.repo.Update(ctx, run)
		return run, actionErr
	}

	run.State = model.StateReady
	run.AppendEvent(model.LevelSuccess, "execute_action succeeded", s.clock())
	if err := s.repo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("runservice: persist ready: %w", err)
	}
	return run, nil
}

// Close transitions READY -> CLOSED, flushing the connector's storage
// state (spec.md §4.4: "storage state flushed").
func (s *Service) Close(ctx context.Context, runID string, conn connector.Connector) (*model.HeadfulRun, error) {
	lock := s.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(run.State, model.StateClosed) {
		return nil, model.ErrInvalidTransition
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			run.AppendEvent(model.LevelWarning, fmt.Sprintf("connector close error: %v", err), s.clock())
		}
	}
	now := s.clock()
	run.State = model.StateClosed
	run.ClosedAt = &now
	run.AppendEvent(model.LevelInfo, "closed", now)
	if err := s.repo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("runservice: persist closed: %w", err)
	}
	s.runLocks.Delete(runID)
	return run, nil
}

// Fail force-transitions a run to FAILED from any non-terminal state, used
// when a caller observes a security or irrecoverable error outside
// ExecuteAction's own fn closure.
func (s *Service) Fail(ctx context.Context, runID string, reason string) (*model.HeadfulRun, error) {
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(run.State, model.StateFailed) {
		return run, nil // already terminal; nothing to do
	}
	run.State = model.StateFailed
	run.AppendEvent(model.LevelError, reason, s.clock())
	if err := s.repo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("runservice: persist failed: %w", err)
	}
	return run, nil
}

// Status returns the current run snapshot.
func (s *Service) Status(ctx context.Context, runID string) (*model.HeadfulRun, error) {
	return s.repo.GetByID(ctx, runID)
}

func (s *Service) transition(ctx context.Context, runID string, to model.State, apply func(*model.HeadfulRun)) (*model.HeadfulRun, error) {
	lock := s.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(run.State, to) {
		return nil, model.ErrInvalidTransition
	}
	run.State = to
	apply(run)
	if err := s.repo.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("runservice: persist %s: %w", to, err)
	}
	return run, nil
}
