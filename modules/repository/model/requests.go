package model

import "time"

type ListTypesQuery struct {
	Query      string
	PeriodKind PeriodKind
	Scope      Scope
	Active     *bool
	SortBy     string
	Page       int
	PageSize   int
}

type CreateTypeRequest struct {
	TypeID              string            `json:"type_id" binding:"required"`
	Name                string            `json:"name" binding:"required"`
	Description         string            `json:"description"`
	Scope               Scope             `json:"scope" binding:"required,oneof=company worker"`
	ValidityPolicy      ValidityPolicy    `json:"validity_policy"`
	PeriodKind          PeriodKind        `json:"period_kind"`
	PlatformAlias       []string          `json:"platform_aliases"`
	IssueDateRequired   bool              `json:"issue_date_required"`
	AllowLateSubmission bool              `json:"allow_late_submission"`
	LateSubmissionDays  *int              `json:"late_submission_max_days,omitempty"`
	ValidityStartMode   ValidityStartMode `json:"validity_start_mode"`
	Active              *bool             `json:"active,omitempty"`
}

type UpdateTypeRequest struct {
	Name                *string           `json:"name,omitempty"`
	Description         *string           `json:"description,omitempty"`
	ValidityPolicy      *ValidityPolicy   `json:"validity_policy,omitempty"`
	PeriodKind          *PeriodKind       `json:"period_kind,omitempty"`
	PlatformAlias       []string          `json:"platform_aliases,omitempty"`
	IssueDateRequired   *bool             `json:"issue_date_required,omitempty"`
	AllowLateSubmission *bool             `json:"allow_late_submission,omitempty"`
	LateSubmissionDays  *int              `json:"late_submission_max_days,omitempty"`
	ValidityStartMode   ValidityStartMode `json:"validity_start_mode,omitempty"`
}

type DuplicateTypeRequest struct {
	NewTypeID string `json:"new_type_id,omitempty"`
}

type ListDocumentsQuery struct {
	TypeID         string
	Scope          Scope
	Status         DocumentStatus
	ValidityStatus ValidityStatus
	PeriodKey      string
	CompanyKey     string
	PersonKey      string
}

type UploadDocumentRequest struct {
	TypeID            string
	CompanyKey        string
	PersonKey         string
	IssueDate         *time.Time
	ValidityStartDate *time.Time
	PeriodKey         string
	FileName          string
	Content           []byte
}

type UpdateDocumentRequest struct {
	CompanyKey *string         `json:"company_key,omitempty"`
	PersonKey  *string         `json:"person_key,omitempty"`
	IssuedAt   *time.Time      `json:"issued_at,omitempty"`
	PeriodKey  *string         `json:"period_key,omitempty"`
	Status     *DocumentStatus `json:"status,omitempty"`
}

type SetOverrideRequest struct {
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Clear     bool       `json:"clear,omitempty"`
}
