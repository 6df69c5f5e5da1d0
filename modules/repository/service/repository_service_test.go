package service

import (
	"context"
	"testing"
	"time"

	"github.com/andreypavlenko/caesub/modules/repository/model"
	"github.com/andreypavlenko/caesub/modules/repository/repository"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	root := t.TempDir()
	types := repository.NewTypeStore(root)
	docs := repository.NewDocumentStore(root, nil)
	fixedNow := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	return NewService(types, docs, func() time.Time { return fixedNow })
}

func minimalPDF() []byte {
	// Smallest structurally valid PDF ledongthuc/pdf can parse: header,
	// one empty page object, xref, trailer.
	return []byte("%PDF-1.4\n" +
		"1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n" +
		"2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n" +
		"3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]>>endobj\n" +
		"trailer<</Root 1 0 R/Size 4>>\n" +
		"%%EOF")
}

// TestDuplicateTypeIdempotentNaming covers testable property #8.
func TestDuplicateTypeIdempotentNaming(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	original, err := s.CreateType(ctx, &model.CreateTypeRequest{
		TypeID: "T104_AUTONOMOS_RECEIPT",
		Name:   "Cuota Autonomos",
		Scope:  model.ScopeWorker,
	})
	if err != nil {
		t.Fatalf("CreateType: %v", err)
	}

	var newIDs []string
	for i := 0; i < 3; i++ {
		dup, err := s.DuplicateType(ctx, "T104_AUTONOMOS_RECEIPT", &model.DuplicateTypeRequest{})
		if err != nil {
			t.Fatalf("DuplicateType #%d: %v", i+1, err)
		}
		newIDs = append(newIDs, dup.TypeID)
	}

	want := []string{"T104_AUTONOMOS_RECEIPT_COPY", "T104_AUTONOMOS_RECEIPT_COPY_2", "T104_AUTONOMOS_RECEIPT_COPY_3"}
	for i, id := range newIDs {
		if id != want[i] {
			t.Errorf("duplicate #%d id = %s, want %s", i+1, id, want[i])
		}
	}
	seen := map[string]bool{}
	for _, id := range newIDs {
		if seen[id] {
			t.Fatalf("duplicate id %s was generated twice", id)
		}
		seen[id] = true
	}

	reloaded, err := s.GetType(ctx, "T104_AUTONOMOS_RECEIPT")
	if err != nil {
		t.Fatalf("GetType original: %v", err)
	}
	if reloaded.Name != original.Name || reloaded.TypeID != original.TypeID {
		t.Error("original type was mutated by duplication")
	}
}

// TestUploadRoundTripMetadata covers testable property #9: uploading the
// same PDF twice for the same (type, subject, period) yields identical
// sha256 and identical computed validity for identical declared dates.
func TestUploadRoundTripMetadata(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateType(ctx, &model.CreateTypeRequest{
		TypeID: "T104_AUTONOMOS_RECEIPT",
		Name:   "Cuota Autonomos",
		Scope:  model.ScopeWorker,
		ValidityPolicy: model.ValidityPolicy{
			Mode:  model.ValidityModeMonthly,
			Basis: model.BasisIssueDate,
		},
		PeriodKind: model.PeriodKindMonth,
	})
	if err != nil {
		t.Fatalf("CreateType: %v", err)
	}

	issueDate := time.Date(2023, time.May, 10, 0, 0, 0, 0, time.UTC)
	req := &model.UploadDocumentRequest{
		TypeID:     "T104_AUTONOMOS_RECEIPT",
		CompanyKey: "ACME",
		PersonKey:  "ERM",
		IssueDate:  &issueDate,
		PeriodKey:  "2023-05",
		FileName:   "recibo.pdf",
		Content:    minimalPDF(),
	}

	first, err := s.Upload(ctx, req)
	if err != nil {
		t.Fatalf("Upload #1: %v", err)
	}
	second, err := s.Upload(ctx, req)
	if err != nil {
		t.Fatalf("Upload #2: %v", err)
	}

	if first.SHA256 != second.SHA256 {
		t.Errorf("sha256 mismatch: %s vs %s", first.SHA256, second.SHA256)
	}
	if first.ComputedValidity.Confidence != second.ComputedValidity.Confidence {
		t.Errorf("confidence mismatch: %v vs %v", first.ComputedValidity.Confidence, second.ComputedValidity.Confidence)
	}
	if !first.ComputedValidity.ValidTo.Equal(*second.ComputedValidity.ValidTo) {
		t.Errorf("valid_to mismatch: %v vs %v", first.ComputedValidity.ValidTo, second.ComputedValidity.ValidTo)
	}
}

func TestUploadInfersNeedsPeriodWhenNoCandidate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateType(ctx, &model.CreateTypeRequest{
		TypeID:     "T104_AUTONOMOS_RECEIPT",
		Name:       "Cuota Autonomos",
		Scope:      model.ScopeWorker,
		PeriodKind: model.PeriodKindMonth,
	})
	if err != nil {
		t.Fatalf("CreateType: %v", err)
	}

	doc, err := s.Upload(ctx, &model.UploadDocumentRequest{
		TypeID:     "T104_AUTONOMOS_RECEIPT",
		CompanyKey: "ACME",
		PersonKey:  "ERM",
		FileName:   "documento_sin_fecha.pdf",
		Content:    minimalPDF(),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !doc.NeedsPeriod {
		t.Error("expected needs_period=true when no period candidate exists")
	}
}

func TestSetOverrideAndClear(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateType(ctx, &model.CreateTypeRequest{
		TypeID: "T1",
		Name:   "Type 1",
		Scope:  model.ScopeCompany,
	})
	if err != nil {
		t.Fatalf("CreateType: %v", err)
	}
	doc, err := s.Upload(ctx, &model.UploadDocumentRequest{
		TypeID:     "T1",
		CompanyKey: "ACME",
		FileName:   "doc.pdf",
		Content:    minimalPDF(),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	validFrom := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	validTo := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)
	updated, err := s.SetOverride(ctx, doc.DocID, &model.SetOverrideRequest{
		ValidFrom: &validFrom, ValidTo: &validTo, Reason: "re-issued",
	})
	if err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	gotFrom, gotTo := updated.EffectiveValidity()
	if !gotFrom.Equal(validFrom) || !gotTo.Equal(validTo) {
		t.Errorf("effective validity not overridden: %v - %v", gotFrom, gotTo)
	}

	cleared, err := s.SetOverride(ctx, doc.DocID, &model.SetOverrideRequest{Clear: true})
	if err != nil {
		t.Fatalf("SetOverride clear: %v", err)
	}
	if cleared.Override != nil {
		t.Error("expected override to be nil after clear")
	}
}
