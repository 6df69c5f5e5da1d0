package model

// Decision is the closed outcome set the Matching Engine and the Policy
// evaluator share (spec.md §4.2 step 8, §4.5.1).
type Decision string

const (
	DecisionAutoUpload     Decision = "AUTO_UPLOAD"
	DecisionReviewRequired Decision = "REVIEW_REQUIRED"
	DecisionNoMatch        Decision = "NO_MATCH"
	DecisionSkip           Decision = "SKIP"
)

// ReasonCode is the closed reason taxonomy of spec.md §4.2.1.
type ReasonCode string

const (
	ReasonMatchOK               ReasonCode = "match_ok"
	ReasonNoLocalMatch          ReasonCode = "no_local_match"
	ReasonMissingDocForPeriod   ReasonCode = "missing_doc_for_period"
	ReasonMissingLocalFile      ReasonCode = "missing_local_file"
	ReasonAmbiguousMatch        ReasonCode = "ambiguous_match"
	ReasonScopeMismatch         ReasonCode = "scope_mismatch"
	ReasonTypeInactive          ReasonCode = "type_inactive"
	ReasonPolicyRejected        ReasonCode = "policy_rejected"
	ReasonSkipAlreadySubmitted ReasonCode = "skip_already_submitted"
	ReasonSkipAlreadyPlanned   ReasonCode = "skip_already_planned"
	ReasonFingerprintCollision ReasonCode = "fingerprint_collision"
	ReasonUnknown               ReasonCode = "unknown"
)

// CandidateType is one document-type candidate considered for a pending
// item, with the alias-match confidence that produced it (spec.md §4.2
// step 2).
type CandidateType struct {
	TypeID     string  `json:"type_id"`
	Confidence float64 `json:"confidence"`
	MatchedAlias string `json:"matched_alias,omitempty"`
}

// CandidateDoc is one local document instance considered as the upload
// target, with its score and, when rejected, the reason it was filtered
// out (spec.md §4.2 step 4).
type CandidateDoc struct {
	DocID          string  `json:"doc_id"`
	TypeID         string  `json:"type_id"`
	Score          float64 `json:"score"`
	FilterOutcome  string  `json:"filter_outcome"` // "kept" or a short reason it was dropped
}

// LocalDocRef points a decision at the chosen document.
type LocalDocRef struct {
	DocID  string `json:"doc_id"`
	TypeID string `json:"type_id"`
}

// AppliedHint records one learning-hint effect folded into a match
// (spec.md §4.2.2).
type AppliedHint struct {
	HintID string `json:"hint_id"`
	Effect string `json:"effect"` // resolved | boosted | ignored
}

// Outcome is the per-item decision block a MatchingDebugReport carries
// (spec.md §3.1).
type Outcome struct {
	Decision           Decision      `json:"decision"`
	LocalDocsConsidered int          `json:"local_docs_considered"`
	PrimaryReasonCode  ReasonCode    `json:"primary_reason_code"`
	HumanHint          string        `json:"human_hint,omitempty"`
	AppliedHints       []AppliedHint `json:"applied_hints,omitempty"`
	Confidence         float64       `json:"confidence"`
	LocalDocRef        *LocalDocRef  `json:"local_doc_ref,omitempty"`
}

// MatchingDebugReport is the per-item trace of matching (spec.md §3.1).
type MatchingDebugReport struct {
	PendingItemKey string            `json:"pending_item_key"`
	Inputs         NormalizedInputs  `json:"inputs"`
	CandidateTypes []CandidateType   `json:"candidate_types"`
	CandidateDocs  []CandidateDoc    `json:"candidate_docs"`
	AppliedHints   []AppliedHint     `json:"applied_hints,omitempty"`
	Outcome        Outcome           `json:"outcome"`
}
