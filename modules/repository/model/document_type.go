// Package model holds the Document Repository's storage structs and wire
// DTOs, mirroring the split the teacher's modules/resumes/model/resume.go
// makes between persisted shape and what a handler serializes.
package model

import "time"

type Scope string

const (
	ScopeCompany Scope = "company"
	ScopeWorker  Scope = "worker"
)

type PeriodKind string

const (
	PeriodKindNone    PeriodKind = "none"
	PeriodKindMonth   PeriodKind = "month"
	PeriodKindQuarter PeriodKind = "quarter"
	PeriodKindYear    PeriodKind = "year"
)

type ValidityStartMode string

const (
	ValidityStartModeIssueDate ValidityStartMode = "issue_date"
	ValidityStartModeManual    ValidityStartMode = "manual"
)

// ValidityPolicy is a tagged variant over {monthly, annual, fixed_end_date,
// none} (spec.md §9 "dynamic typing becomes tagged variants"); Mode selects
// which payload field is meaningful.
type ValidityPolicy struct {
	Mode      ValidityPolicyMode `json:"mode"`
	Basis     ValidityBasis      `json:"basis"`
	GraceDays uint               `json:"grace_days"`

	MonthlyNMonths    *int       `json:"monthly_n_months,omitempty"`
	AnnualMonths      *int       `json:"annual_months,omitempty"`
	FixedEndDateValue *time.Time `json:"fixed_end_date,omitempty"`
}

type ValidityPolicyMode string

const (
	ValidityModeMonthly      ValidityPolicyMode = "monthly"
	ValidityModeAnnual       ValidityPolicyMode = "annual"
	ValidityModeFixedEndDate ValidityPolicyMode = "fixed_end_date"
	ValidityModeNone         ValidityPolicyMode = "none"
)

type ValidityBasis string

const (
	BasisIssueDate ValidityBasis = "issue_date"
	BasisNameDate  ValidityBasis = "name_date"
	BasisManual    ValidityBasis = "manual"
)

// MonthlyNMonthsOrDefault returns the configured n_months, defaulting to 1.
func (p ValidityPolicy) MonthlyNMonthsOrDefault() int {
	if p.MonthlyNMonths != nil {
		return *p.MonthlyNMonths
	}
	return 1
}

// AnnualMonthsOrDefault returns the configured annual span in months, defaulting to 12.
func (p ValidityPolicy) AnnualMonthsOrDefault() int {
	if p.AnnualMonths != nil {
		return *p.AnnualMonths
	}
	return 12
}

// DocumentType is a catalog entry defining a class of documents (spec §3.1).
type DocumentType struct {
	TypeID      string `json:"type_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Scope       Scope  `json:"scope"`

	ValidityPolicy ValidityPolicy `json:"validity_policy"`
	PeriodKind     PeriodKind     `json:"period_kind"`
	PlatformAlias  []string       `json:"platform_aliases"`

	IssueDateRequired   bool              `json:"issue_date_required"`
	AllowLateSubmission bool              `json:"allow_late_submission"`
	LateSubmissionDays  *int              `json:"late_submission_max_days,omitempty"`
	ValidityStartMode   ValidityStartMode `json:"validity_start_mode"`
	Active              bool              `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentTypeDTO is the wire representation returned by the REST surface.
type DocumentTypeDTO struct {
	TypeID              string            `json:"type_id"`
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	Scope               Scope             `json:"scope"`
	ValidityPolicy      ValidityPolicy    `json:"validity_policy"`
	PeriodKind          PeriodKind        `json:"period_kind"`
	PlatformAlias       []string          `json:"platform_aliases"`
	IssueDateRequired   bool              `json:"issue_date_required"`
	AllowLateSubmission bool              `json:"allow_late_submission"`
	LateSubmissionDays  *int              `json:"late_submission_max_days,omitempty"`
	ValidityStartMode   ValidityStartMode `json:"validity_start_mode"`
	Active              bool              `json:"active"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func (t *DocumentType) ToDTO() *DocumentTypeDTO {
	return &DocumentTypeDTO{
		TypeID:              t.TypeID,
		Name:                t.Name,
		Description:         t.Description,
		Scope:               t.Scope,
		ValidityPolicy:      t.ValidityPolicy,
		PeriodKind:          t.PeriodKind,
		PlatformAlias:       t.PlatformAlias,
		IssueDateRequired:   t.IssueDateRequired,
		AllowLateSubmission: t.AllowLateSubmission,
		LateSubmissionDays:  t.LateSubmissionDays,
		ValidityStartMode:   t.ValidityStartMode,
		Active:              t.Active,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// Clone deep-copies a DocumentType by value, used by duplicate_type which
// must exclude type_id and name from the copy (spec §4.1) to avoid
// constructor collisions with the original.
func (t *DocumentType) Clone() *DocumentType {
	clone := *t
	clone.PlatformAlias = append([]string(nil), t.PlatformAlias...)
	if t.LateSubmissionDays != nil {
		v := *t.LateSubmissionDays
		clone.LateSubmissionDays = &v
	}
	return &clone
}
