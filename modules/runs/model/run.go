// Package model holds the HeadfulRun state machine of spec.md §4.4: an
// operator-visible automated browser session with a persistent storage
// state, a run-level mutex admitting one action at a time, and a risk level
// recomputed on every timeline write.
package model

import (
	"errors"
	"time"
)

// State is the closed HeadfulRun state set (spec.md §4.4).
type State string

const (
	StateCreated       State = "CREATED"
	StateBrowserStarted State = "BROWSER_STARTED"
	StateAuthenticated  State = "AUTHENTICATED"
	StateReady          State = "READY"
	StateExecuting      State = "EXECUTING"
	StateClosed         State = "CLOSED"
	StateFailed         State = "FAILED"
)

// RiskLevel is recomputed on every timeline write (spec.md §4.4).
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// EventLevel classifies one timeline entry.
type EventLevel string

const (
	LevelInfo    EventLevel = "INFO"
	LevelSuccess EventLevel = "SUCCESS"
	LevelWarning EventLevel = "WARNING"
	LevelAction  EventLevel = "ACTION"
	LevelError   EventLevel = "ERROR"
)

// TimelineEvent is one operator-visible entry in a run's timeline.
type TimelineEvent struct {
	Seq     int        `json:"seq"`
	Level   EventLevel `json:"level"`
	Message string     `json:"message"`
	TsUTC   time.Time  `json:"ts_utc"`
}

// HeadfulRun is the persisted run record (runs/<run_id>/run_manifest.json).
type HeadfulRun struct {
	RunID          string          `json:"run_id"`
	PlatformKey    string          `json:"platform_key"`
	State          State           `json:"state"`
	Timeline       []TimelineEvent `json:"timeline"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	WarningOrActionThreshold int   `json:"warning_action_threshold"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
}

var (
	ErrRunNotFound       = errors.New("run not found")
	ErrInvalidTransition = errors.New("invalid run state transition")
)

// allowedTransitions encodes spec.md §4.4's state diagram. FAILED is
// reachable from any non-terminal state and is checked separately.
var allowedTransitions = map[State][]State{
	StateCreated:        {StateBrowserStarted},
	StateBrowserStarted: {StateAuthenticated},
	StateAuthenticated:  {StateReady},
	StateReady:          {StateExecuting, StateClosed},
	StateExecuting:      {StateReady},
}

// CanTransition reports whether from->to is a legal state change.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateClosed && from != StateFailed
	}
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanExecuteAction reports whether execute_action is admitted in the
// current state — testable property #10: never in
// {CREATED, BROWSER_STARTED, CLOSED, FAILED}.
func (r *HeadfulRun) CanExecuteAction() bool {
	return r.State == StateReady
}

// RecomputeRisk applies spec.md §4.4's risk rule: high if any ERROR event;
// medium if more than the configured threshold of WARNING/ACTION events;
// else low.
func (r *HeadfulRun) RecomputeRisk() {
	var errorCount, warnOrActionCount int
	for _, ev := range r.Timeline {
		switch ev.Level {
		case LevelError:
			errorCount++
		case LevelWarning, LevelAction:
			warnOrActionCount++
		}
	}
	threshold := r.WarningOrActionThreshold
	if threshold <= 0 {
		threshold = 3
	}
	switch {
	case errorCount > 0:
		r.RiskLevel = RiskHigh
	case warnOrActionCount > threshold:
		r.RiskLevel = RiskMedium
	default:
		r.RiskLevel = RiskLow
	}
}

// AppendEvent appends a timeline entry and recomputes risk, matching the
// "appended under the per-run mutex... risk recomputed on every timeline
// write" invariant of spec.md §4.4/§5. Callers hold the run's mutex.
func (r *HeadfulRun) AppendEvent(level EventLevel, message string, now time.Time) {
	r.Timeline = append(r.Timeline, TimelineEvent{
		Seq: len(r.Timeline) + 1, Level: level, Message: message, TsUTC: now,
	})
	r.UpdatedAt = now
	r.RecomputeRisk()
}
