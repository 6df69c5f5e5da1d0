package validity

import (
	"testing"
	"time"

	"github.com/andreypavlenko/caesub/modules/repository/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeMonthly(t *testing.T) {
	policy := model.ValidityPolicy{Mode: model.ValidityModeMonthly, Basis: model.BasisIssueDate}
	issued := date(2023, time.May, 10)
	got := Compute(policy, Metadata{IssueDate: &issued})

	if got.ValidTo == nil || !got.ValidTo.Equal(date(2023, time.May, 31)) {
		t.Fatalf("valid_to = %v, want 2023-05-31", got.ValidTo)
	}
	if got.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", got.Confidence)
	}
}

func TestComputeMonthlyWithGraceDays(t *testing.T) {
	policy := model.ValidityPolicy{Mode: model.ValidityModeMonthly, Basis: model.BasisIssueDate, GraceDays: 5}
	issued := date(2023, time.May, 10)
	got := Compute(policy, Metadata{IssueDate: &issued})

	want := date(2023, time.June, 5)
	if got.ValidTo == nil || !got.ValidTo.Equal(want) {
		t.Fatalf("valid_to = %v, want %v", got.ValidTo, want)
	}
}

func TestComputeAnnualExactMonthArithmetic(t *testing.T) {
	policy := model.ValidityPolicy{Mode: model.ValidityModeAnnual, Basis: model.BasisIssueDate}
	issued := date(2023, time.February, 28)
	got := Compute(policy, Metadata{IssueDate: &issued})

	want := date(2024, time.February, 28)
	if got.ValidTo == nil || !got.ValidTo.Equal(want) {
		t.Fatalf("valid_to = %v, want %v", got.ValidTo, want)
	}
}

func TestComputeFixedEndDate(t *testing.T) {
	fixed := date(2025, time.December, 31)
	policy := model.ValidityPolicy{Mode: model.ValidityModeFixedEndDate, Basis: model.BasisManual, FixedEndDateValue: &fixed}
	start := date(2024, time.January, 1)
	got := Compute(policy, Metadata{ValidityStartDate: &start})

	if got.ValidTo == nil || !got.ValidTo.Equal(fixed) {
		t.Fatalf("valid_to = %v, want %v", got.ValidTo, fixed)
	}
}

func TestComputeMissingBaseReturnsZeroConfidence(t *testing.T) {
	policy := model.ValidityPolicy{Mode: model.ValidityModeMonthly, Basis: model.BasisIssueDate}
	got := Compute(policy, Metadata{})

	if got.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", got.Confidence)
	}
	if len(got.Reasons) == 0 {
		t.Error("expected reasons to explain the missing input")
	}
	if got.ValidFrom != nil || got.ValidTo != nil {
		t.Error("expected nil valid_from/valid_to on failure")
	}
}

func TestComputeNoneMode(t *testing.T) {
	policy := model.ValidityPolicy{Mode: model.ValidityModeNone, Basis: model.BasisIssueDate}
	issued := date(2023, time.May, 10)
	got := Compute(policy, Metadata{IssueDate: &issued})

	if got.ValidFrom != nil || got.ValidTo != nil {
		t.Error("mode=none should leave valid_from/valid_to nil")
	}
}

// TestComputeDeterministic covers testable property #2: for fixed inputs,
// Compute must produce byte-identical output across repeated invocations.
func TestComputeDeterministic(t *testing.T) {
	policy := model.ValidityPolicy{Mode: model.ValidityModeMonthly, Basis: model.BasisIssueDate, GraceDays: 3}
	issued := date(2023, time.May, 10)
	meta := Metadata{IssueDate: &issued}

	first := Compute(policy, meta)
	second := Compute(policy, meta)

	if first.Confidence != second.Confidence || !first.ValidTo.Equal(*second.ValidTo) {
		t.Fatal("Compute is not deterministic for identical inputs")
	}
}
