// Package coreerr implements the closed error taxonomy every subsystem
// surfaces at its boundary: a stable prefix set, a severity, and a stage,
// carried as structured fields the way the teacher's modules carry
// model.ErrorCode — except this taxonomy is cross-cutting (spec §7), so it
// lives once instead of being re-declared per module.
package coreerr

import (
	"encoding/json"
	"fmt"
)

// Stage is where in the execution pipeline an error originated.
type Stage string

const (
	StageProposalValidation Stage = "proposal_validation"
	StagePrecondition       Stage = "precondition"
	StageExecution          Stage = "execution"
	StagePostcondition      Stage = "postcondition"
	StagePolicy             Stage = "policy"
	StageEvidence           Stage = "evidence"
	StageSecurity           Stage = "security"
	StageExternal           Stage = "external"
)

// Severity classifies how an error should be handled downstream.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Code is a closed-taxonomy error code. Every value must start with one of
// the prefixes PROPOSAL_, PRE_, EXEC_, POST_, POLICY_, EVIDENCE_, SECURITY_,
// EXTERNAL_. Adding a new code is additive; renaming or removing one breaks
// the external contract.
type Code string

const (
	CodeExecItemNotFoundAtExecution Code = "EXEC_ITEM_NOT_FOUND_AT_EXECUTION"
	CodePostUploadVerificationFail  Code = "POST_UPLOAD_POST_VERIFICATION_FAILED"
	CodeSecurityBlockedDomainEscape Code = "SECURITY_BLOCKED_DOMAIN_ESCAPE"
	CodePolicyHaltSameStateRevisit  Code = "POLICY_HALT_SAME_STATE_REVISIT"
	CodePreDHXBlockerNotDismissed   Code = "PRE_DHX_BLOCKER_NOT_DISMISSED"
	CodePolicyRejected              Code = "POLICY_REJECTED"
	CodeProposalValidationFailed    Code = "PROPOSAL_VALIDATION_FAILED"
	CodeExternalCaptchaRequired     Code = "EXTERNAL_CAPTCHA_REQUIRED"
	CodeExternalSSOInterstitial     Code = "EXTERNAL_SSO_INTERSTITIAL"
	CodeExternal2FARequired         Code = "EXTERNAL_2FA_REQUIRED"
	CodeExternalPersistentModal     Code = "EXTERNAL_PERSISTENT_MODAL"
	CodeEvidenceWriteFailed         Code = "EVIDENCE_WRITE_FAILED"
	CodeExecActionTimeout           Code = "EXEC_ACTION_TIMEOUT"
	CodeInternal                    Code = "INTERNAL_ERROR"
)

// Error is the structured representation spec.md §7 requires on every
// subsystem error.
type Error struct {
	SchemaVersion   int             `json:"schema_version"`
	ErrorCode       Code            `json:"error_code"`
	Stage           Stage           `json:"stage"`
	Severity        Severity        `json:"severity"`
	Retryable       bool            `json:"retryable"`
	Message         string          `json:"message"`
	Details         json.RawMessage `json:"details,omitempty"`
	FailedCondition []string        `json:"failed_conditions,omitempty"`
	EvidenceRefs    []string        `json:"evidence_refs,omitempty"`
}

const schemaVersion = 1

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// New constructs a non-retryable error; retryability is opt-in via
// WithRetryable since spec §7 says "false unless explicitly permitted".
func New(code Code, stage Stage, severity Severity, message string) *Error {
	return &Error{
		SchemaVersion: schemaVersion,
		ErrorCode:     code,
		Stage:         stage,
		Severity:      severity,
		Retryable:     false,
		Message:       message,
	}
}

func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

func (e *Error) WithDetails(details any) *Error {
	b, err := json.Marshal(details)
	if err == nil {
		e.Details = b
	}
	return e
}

func (e *Error) WithFailedConditions(conditions ...string) *Error {
	e.FailedCondition = append(e.FailedCondition, conditions...)
	return e
}

func (e *Error) WithEvidenceRefs(refs ...string) *Error {
	e.EvidenceRefs = append(e.EvidenceRefs, refs...)
	return e
}

// HTTPStatus maps an error's stage to an HTTP status: 400 for proposal
// validation, 422 for precondition, policy, evidence and external stages,
// 403 for security, and otherwise 500 for critical severity and 422 for the
// rest. It never returns 404 or 409; those come from the module handlers.
func (e *Error) HTTPStatus() int {
	switch e.Stage {
	case StageProposalValidation:
		return 400
	case StagePrecondition, StagePolicy, StageEvidence, StageExternal:
		return 422
	case StageSecurity:
		return 403
	default:
		if e.Severity == SeverityCritical {
			return 500
		}
		return 422
	}
}
