// Package model holds the SubmissionRule catalog (spec.md §3.1): the
// declarative matching+form contract per portal that the Matching Engine
// and the upload step both consult.
package model

import "time"

type RuleScope string

const (
	RuleScopeGlobal RuleScope = "GLOBAL"
	RuleScopeCoord  RuleScope = "COORD"
)

// FormSpec declares the selectors the Portal Execution Pipeline needs to
// fill and submit the upload form for this rule's document type.
type FormSpec struct {
	UploadFieldSelector      string   `json:"upload_field_selector"`
	DateFields               []string `json:"date_fields"`
	SubmitButtonSelector     string   `json:"submit_button_selector"`
	ConfirmationTextPatterns []string `json:"confirmation_text_patterns"`
}

// MatchSpec declares the normalized substrings a rule matches a pending
// requirement's text against (spec.md §3.1).
type MatchSpec struct {
	PendingTextContains []string `json:"pending_text_contains"`
	EmpresaContains     []string `json:"empresa_contains"`
}

// SubmissionRule is declarative matching+form contract per portal.
type SubmissionRule struct {
	RuleID         string    `json:"rule_id"`
	PlatformKey    string    `json:"platform_key"`
	CoordLabel     string    `json:"coord_label,omitempty"`
	Scope          RuleScope `json:"scope"`
	Enabled        bool      `json:"enabled"`
	Match          MatchSpec `json:"match"`
	DocumentTypeID string    `json:"document_type_id"`
	Form           FormSpec  `json:"form"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key identifies the (platform_key, document_type_id, coord_label) triple
// used for COORD > GLOBAL precedence resolution (spec.md §3.1).
func (r *SubmissionRule) Key() (platformKey, documentTypeID, coordLabel string) {
	return r.PlatformKey, r.DocumentTypeID, r.CoordLabel
}
