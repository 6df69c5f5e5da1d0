// Package validity implements the deterministic Validity Calculator of
// spec.md §4.1.1. Compute is a pure function of (policy, metadata) — it
// never reads the wall clock,
// satisfying testable property #2 (validity determinism).
package validity

import (
	"time"

	"github.com/andreypavlenko/caesub/modules/repository/model"
)

// Metadata is the subset of a DocumentInstance the calculator consumes.
type Metadata struct {
	ValidityStartDate *time.Time
	IssueDate         *time.Time
	NameDate          *time.Time
}

// Compute applies policy P to metadata M deterministically (spec §4.1.1).
// It never returns an error: on missing required input it reports
// confidence 0 and explains why in Reasons.
func Compute(policy model.ValidityPolicy, meta Metadata) model.ComputedValidity {
	base, baseReason := pickBase(policy.Basis, meta)
	if base == nil {
		return model.ComputedValidity{
			Confidence: 0,
			Reasons:    []string{baseReason},
		}
	}

	var validFrom, validTo *time.Time
	var reasons []string
	policyApplicable := true

	validFrom = base
	switch policy.Mode {
	case model.ValidityModeMonthly:
		t := endOfMonth(*base, policy.MonthlyNMonthsOrDefault())
		validTo = &t
	case model.ValidityModeAnnual:
		t := addExactMonths(*base, policy.AnnualMonthsOrDefault())
		validTo = &t
	case model.ValidityModeFixedEndDate:
		if policy.FixedEndDateValue == nil {
			policyApplicable = false
			reasons = append(reasons, "fixed_end_date policy missing its date")
		} else {
			validTo = policy.FixedEndDateValue
		}
	case model.ValidityModeNone:
		validFrom = nil
		validTo = nil
	default:
		policyApplicable = false
		reasons = append(reasons, "unknown validity policy mode")
	}

	if validTo != nil && policy.GraceDays > 0 {
		t := validTo.Add(time.Duration(policy.GraceDays) * 24 * time.Hour)
		validTo = &t
	}

	confidence := 0.4 // base parsed
	if policyApplicable {
		confidence += 0.3
	}
	requiredFieldsPresent := policy.Mode == model.ValidityModeNone || validTo != nil
	if requiredFieldsPresent {
		confidence += 0.3
	} else {
		reasons = append(reasons, "required fields missing for mode "+string(policy.Mode))
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return model.ComputedValidity{
		ValidFrom:  validFrom,
		ValidTo:    validTo,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

func pickBase(basis model.ValidityBasis, meta Metadata) (*time.Time, string) {
	switch basis {
	case model.BasisIssueDate:
		if meta.IssueDate != nil {
			return meta.IssueDate, ""
		}
		return nil, "basis issue_date requested but issue_date missing"
	case model.BasisNameDate:
		if meta.NameDate != nil {
			return meta.NameDate, ""
		}
		return nil, "basis name_date requested but name_date missing"
	case model.BasisManual:
		if meta.ValidityStartDate != nil {
			return meta.ValidityStartDate, ""
		}
		return nil, "basis manual requested but validity_start_date missing"
	default:
		// Fall through the priority order from spec.md §4.1.1:
		// validity_start_date | issue_date | name_date | manual.
		if meta.ValidityStartDate != nil {
			return meta.ValidityStartDate, ""
		}
		if meta.IssueDate != nil {
			return meta.IssueDate, ""
		}
		if meta.NameDate != nil {
			return meta.NameDate, ""
		}
		return nil, "no validity_start_date, issue_date, or name_date available"
	}
}

// endOfMonth returns the last instant of (base's year, base's month +
// nMonths - 1) at 00:00 on the last calendar day, per spec.md §4.1.1.
func endOfMonth(base time.Time, nMonths int) time.Time {
	firstOfTargetMonth := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, base.Location())
	firstOfTargetMonth = firstOfTargetMonth.AddDate(0, nMonths-1, 0)
	firstOfNextMonth := firstOfTargetMonth.AddDate(0, 1, 0)
	return firstOfNextMonth.AddDate(0, 0, -1)
}

// addExactMonths adds whole calendar months to base (exact month
// arithmetic, per spec.md §4.1.1's "use exact month arithmetic").
func addExactMonths(base time.Time, months int) time.Time {
	return base.AddDate(0, months, 0)
}
