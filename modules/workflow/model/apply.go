package model

// ApplyRequest is the body of POST /api/plan/apply (spec.md §4.5.3,
// §6.1). ClientRequestID backs the idempotency law of spec.md §5: a
// repeated request with the same id within the retention window returns
// the original result without re-executing uploads.
type ApplyRequest struct {
	PlanID           string   `json:"plan_id" binding:"required"`
	DecisionPackID   string   `json:"decision_pack_id,omitempty"`
	Items            []string `json:"items,omitempty"` // pending_item_key subset; empty = every AUTO_UPLOAD item
	MaxUploads       int      `json:"max_uploads,omitempty"`
	StopOnFirstError *bool    `json:"stop_on_first_error,omitempty"`
	RateLimitSeconds *float64 `json:"rate_limit_seconds,omitempty"`
	ClientRequestID  string   `json:"client_request_id" binding:"required"`
}

// ApplyItemOutcome is the closed per-item apply outcome.
type ApplyItemOutcome string

const (
	ItemOutcomeSuccess ApplyItemOutcome = "success"
	ItemOutcomeFailed  ApplyItemOutcome = "failed"
	ItemOutcomeSkipped ApplyItemOutcome = "skipped"
)

// ApplyItemResult is one line of the apply response (spec.md §4.5.3).
type ApplyItemResult struct {
	PendingItemKey string           `json:"pending_item_key"`
	Outcome        ApplyItemOutcome `json:"outcome"`
	ReasonCode     string           `json:"reason_code,omitempty"`
	DocID          string           `json:"doc_id,omitempty"`
	RecordID       string           `json:"record_id,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// ApplySummary is the closing tally spec.md §4.5.3 requires.
type ApplySummary struct {
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	RunID   string `json:"run_id"`
}

// ApplyResult is the full response of an apply call, also what the
// idempotency store caches against ClientRequestID.
type ApplyResult struct {
	PlanID  string            `json:"plan_id"`
	Items   []ApplyItemResult `json:"items"`
	Summary ApplySummary      `json:"summary"`
}
