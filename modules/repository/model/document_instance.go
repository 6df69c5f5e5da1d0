package model

import "time"

type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusReviewed       DocumentStatus = "reviewed"
	StatusReadyToSubmit  DocumentStatus = "ready_to_submit"
	StatusSubmitted      DocumentStatus = "submitted"
	StatusExpired        DocumentStatus = "expired"
)

type ValidityStatus string

const (
	ValidityStatusValid         ValidityStatus = "valid"
	ValidityStatusExpiringSoon  ValidityStatus = "expiring_soon"
	ValidityStatusExpired       ValidityStatus = "expired"
	ValidityStatusUnknown       ValidityStatus = "unknown"
)

// ExtractedMetadata holds dates the repository inferred from the upload
// itself (filename, PDF Info dict) rather than from declared form fields.
type ExtractedMetadata struct {
	ValidityStartDate *time.Time `json:"validity_start_date,omitempty"`
	NameDate          *time.Time `json:"name_date,omitempty"`
}

// ComputedValidity is the output of the Validity Calculator (spec §4.1.1).
type ComputedValidity struct {
	ValidFrom  *time.Time `json:"valid_from"`
	ValidTo    *time.Time `json:"valid_to"`
	Confidence float64    `json:"confidence"`
	Reasons    []string   `json:"reasons"`
}

// ValidityOverride, when present, replaces ComputedValidity for every
// consumer (spec §3.1, scenario S5).
type ValidityOverride struct {
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	Reason    string     `json:"reason"`
}

// DocumentInstance is a concrete document held in the repository.
type DocumentInstance struct {
	DocID      string `json:"doc_id"`
	TypeID     string `json:"type_id"`
	Scope      Scope  `json:"scope"`
	CompanyKey string `json:"company_key,omitempty"`
	PersonKey  string `json:"person_key,omitempty"`

	FileNameOriginal string `json:"file_name_original"`
	StoredPath       string `json:"stored_path"`
	SHA256           string `json:"sha256"`

	IssuedAt   *time.Time        `json:"issued_at,omitempty"`
	Extracted  ExtractedMetadata `json:"extracted"`
	PeriodKind PeriodKind        `json:"period_kind"`
	PeriodKey  string            `json:"period_key,omitempty"`
	NeedsPeriod bool             `json:"needs_period"`

	ComputedValidity ComputedValidity  `json:"computed_validity"`
	Override         *ValidityOverride `json:"validity_override,omitempty"`

	Status DocumentStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveValidity returns the override when present, else the computed
// validity (spec §3.1: "when present, replaces computed_validity for
// consumers").
func (d *DocumentInstance) EffectiveValidity() (validFrom, validTo *time.Time) {
	if d.Override != nil {
		return d.Override.ValidFrom, d.Override.ValidTo
	}
	return d.ComputedValidity.ValidFrom, d.ComputedValidity.ValidTo
}

// ValidityStatus derives the status on read — never persisted unverified
// (spec §3.1).
func (d *DocumentInstance) ValidityStatus(today time.Time, expiringSoonDays int) ValidityStatus {
	_, validTo := d.EffectiveValidity()
	if validTo == nil {
		return ValidityStatusUnknown
	}
	if today.After(*validTo) {
		return ValidityStatusExpired
	}
	if today.Add(time.Duration(expiringSoonDays) * 24 * time.Hour).After(*validTo) {
		return ValidityStatusExpiringSoon
	}
	return ValidityStatusValid
}

// DaysUntilExpiry returns the whole-day difference to valid_to, or nil when
// the effective validity has no end date.
func (d *DocumentInstance) DaysUntilExpiry(today time.Time) *int {
	_, validTo := d.EffectiveValidity()
	if validTo == nil {
		return nil
	}
	days := int(validTo.Sub(today).Hours() / 24)
	return &days
}

// DocumentInstanceDTO is the read-side wire shape: computed fields are
// materialized at serialization time, never trusted from disk.
type DocumentInstanceDTO struct {
	DocID            string            `json:"doc_id"`
	TypeID           string            `json:"type_id"`
	Scope            Scope             `json:"scope"`
	CompanyKey       string            `json:"company_key,omitempty"`
	PersonKey        string            `json:"person_key,omitempty"`
	FileNameOriginal string            `json:"file_name_original"`
	SHA256           string            `json:"sha256"`
	IssuedAt         *time.Time        `json:"issued_at,omitempty"`
	PeriodKind       PeriodKind        `json:"period_kind"`
	PeriodKey        string            `json:"period_key,omitempty"`
	NeedsPeriod      bool              `json:"needs_period"`
	ComputedValidity ComputedValidity  `json:"computed_validity"`
	Override         *ValidityOverride `json:"validity_override,omitempty"`
	ValidityStatus   ValidityStatus    `json:"validity_status"`
	DaysUntilExpiry  *int              `json:"days_until_expiry,omitempty"`
	Status           DocumentStatus    `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

const defaultExpiringSoonDays = 15

func (d *DocumentInstance) ToDTO(today time.Time) *DocumentInstanceDTO {
	return &DocumentInstanceDTO{
		DocID:            d.DocID,
		TypeID:           d.TypeID,
		Scope:            d.Scope,
		CompanyKey:       d.CompanyKey,
		PersonKey:        d.PersonKey,
		FileNameOriginal: d.FileNameOriginal,
		SHA256:           d.SHA256,
		IssuedAt:         d.IssuedAt,
		PeriodKind:       d.PeriodKind,
		PeriodKey:        d.PeriodKey,
		NeedsPeriod:      d.NeedsPeriod,
		ComputedValidity: d.ComputedValidity,
		Override:         d.Override,
		ValidityStatus:   d.ValidityStatus(today, defaultExpiringSoonDays),
		DaysUntilExpiry:  d.DaysUntilExpiry(today),
		Status:           d.Status,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
