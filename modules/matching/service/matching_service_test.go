package service

import (
	"testing"
	"time"

	learningmodel "github.com/andreypavlenko/caesub/modules/learning/model"
	learningsvc "github.com/andreypavlenko/caesub/modules/learning/service"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	repomodel "github.com/andreypavlenko/caesub/modules/repository/model"
	"github.com/stretchr/testify/require"
)

func autonomosType() *repomodel.DocumentType {
	return &repomodel.DocumentType{
		TypeID:        "T104_AUTONOMOS_RECEIPT",
		Name:          "Recibo Autónomos",
		Scope:         repomodel.ScopeWorker,
		PeriodKind:    repomodel.PeriodKindMonth,
		PlatformAlias: []string{"t104.0", "t205", "t205.0", "cuota autonomos"},
		Active:        true,
	}
}

// TestS1CleanMatch covers spec.md scenario S1.
func TestS1CleanMatch(t *testing.T) {
	pending := matchingmodel.PendingRequirement{
		PendingItemKey: "t205.0|ultimo recibo bancario pago cuota autonomos (mayo 2023)|",
		TipoDoc:        "T205.0",
		Elemento:       "Último Recibo bancario pago cuota autónomos (Mayo 2023)",
	}
	doc := &repomodel.DocumentInstance{
		DocID:      "doc-1",
		TypeID:     "T104_AUTONOMOS_RECEIPT",
		PersonKey:  "ERM",
		PeriodKey:  "2023-05",
		Status:     repomodel.StatusReviewed,
		StoredPath: "docs/doc-1.pdf",
	}

	report := Match(Input{
		Pending: pending,
		Scope:   ScopeFilter{PersonKey: "ERM"},
		Types:   []*repomodel.DocumentType{autonomosType()},
		Docs:    []*repomodel.DocumentInstance{doc},
		Today:   time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	})

	require.Equal(t, matchingmodel.DecisionAutoUpload, report.Outcome.Decision)
	require.Equal(t, matchingmodel.ReasonMatchOK, report.Outcome.PrimaryReasonCode)
	require.NotNil(t, report.Outcome.LocalDocRef)
	require.Equal(t, "doc-1", report.Outcome.LocalDocRef.DocID)
	require.GreaterOrEqual(t, report.Outcome.Confidence, 0.9)
}

// TestS2MissingPeriod covers spec.md scenario S2: same catalog, no
// document for the detected period.
func TestS2MissingPeriod(t *testing.T) {
	pending := matchingmodel.PendingRequirement{
		PendingItemKey: "t205.0|ultimo recibo bancario pago cuota autonomos (mayo 2023)|",
		TipoDoc:        "T205.0",
		Elemento:       "Último Recibo bancario pago cuota autónomos (Mayo 2023)",
	}

	report := Match(Input{
		Pending: pending,
		Scope:   ScopeFilter{PersonKey: "ERM"},
		Types:   []*repomodel.DocumentType{autonomosType()},
		Docs:    nil,
		Today:   time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	})

	require.Equal(t, matchingmodel.DecisionReviewRequired, report.Outcome.Decision)
	require.Equal(t, matchingmodel.ReasonMissingDocForPeriod, report.Outcome.PrimaryReasonCode)
}

// TestS3Dedupe covers spec.md scenario S3 / testable property #4.
func TestS3Dedupe(t *testing.T) {
	pending := matchingmodel.PendingRequirement{
		TipoDoc:  "T205.0",
		Elemento: "Último Recibo bancario pago cuota autónomos (Mayo 2023)",
	}
	report := Match(Input{
		Pending: pending,
		Types:   []*repomodel.DocumentType{autonomosType()},
		Dedupe:  DedupeAlreadySubmitted,
	})
	require.Equal(t, matchingmodel.DecisionSkip, report.Outcome.Decision)
	require.Equal(t, matchingmodel.ReasonSkipAlreadySubmitted, report.Outcome.PrimaryReasonCode)
}

// TestMissingLocalFile: matched doc exists but its blob does not.
func TestMissingLocalFile(t *testing.T) {
	pending := matchingmodel.PendingRequirement{
		TipoDoc:  "T205.0",
		Elemento: "Recibo autónomos mayo 2023",
	}
	doc := &repomodel.DocumentInstance{
		DocID:     "doc-1",
		TypeID:    "T104_AUTONOMOS_RECEIPT",
		PeriodKey: "2023-05",
		Status:    repomodel.StatusReviewed,
	}
	report := Match(Input{
		Pending: pending,
		Types:   []*repomodel.DocumentType{autonomosType()},
		Docs:    []*repomodel.DocumentInstance{doc},
		Today:   time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, matchingmodel.DecisionReviewRequired, report.Outcome.Decision)
	require.Equal(t, matchingmodel.ReasonMissingLocalFile, report.Outcome.PrimaryReasonCode)
}

// TestAmbiguousMatch: two candidates scoring within 0.1 force a review.
func TestAmbiguousMatch(t *testing.T) {
	pending := matchingmodel.PendingRequirement{
		TipoDoc:  "T205.0",
		Elemento: "Recibo autónomos mayo 2023",
	}
	docA := &repomodel.DocumentInstance{DocID: "a", TypeID: "T104_AUTONOMOS_RECEIPT", PeriodKey: "2023-05", Status: repomodel.StatusReviewed, StoredPath: "docs/a.pdf"}
	docB := &repomodel.DocumentInstance{DocID: "b", TypeID: "T104_AUTONOMOS_RECEIPT", PeriodKey: "2023-05", Status: repomodel.StatusReadyToSubmit, StoredPath: "docs/b.pdf"}

	report := Match(Input{
		Pending: pending,
		Types:   []*repomodel.DocumentType{autonomosType()},
		Docs:    []*repomodel.DocumentInstance{docA, docB},
		Today:   time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, matchingmodel.DecisionReviewRequired, report.Outcome.Decision)
	require.Equal(t, matchingmodel.ReasonAmbiguousMatch, report.Outcome.PrimaryReasonCode)
}

// TestNoLocalMatch: no alias matches the pending text at all.
func TestNoLocalMatch(t *testing.T) {
	pending := matchingmodel.PendingRequirement{TipoDoc: "XYZ999", Elemento: "unrelated requirement"}
	report := Match(Input{Pending: pending, Types: []*repomodel.DocumentType{autonomosType()}})
	require.Equal(t, matchingmodel.DecisionNoMatch, report.Outcome.Decision)
	require.Equal(t, matchingmodel.ReasonNoLocalMatch, report.Outcome.PrimaryReasonCode)
}

// TestHintExactResolvesDirectly covers testable property #6: one enabled
// EXACT hint with an existing doc resolves outright.
func TestHintExactResolvesDirectly(t *testing.T) {
	pending := matchingmodel.PendingRequirement{TipoDoc: "T205.0", Elemento: "Recibo autónomos mayo 2023"}
	doc := &repomodel.DocumentInstance{DocID: "doc-1", TypeID: "T104_AUTONOMOS_RECEIPT", StoredPath: "docs/doc-1.pdf"}

	result := learningsvc.ResolveResult{
		Effect:       learningsvc.EffectResolved,
		Mapping:      &learningmodel.LearnedMapping{TypeIDExpected: "T104_AUTONOMOS_RECEIPT", LocalDocID: "doc-1"},
		Confidence:   1.0,
		MatchedHints: []string{"hint-1"},
	}

	report := Match(Input{
		Pending: pending,
		Types:   []*repomodel.DocumentType{autonomosType()},
		Docs:    []*repomodel.DocumentInstance{doc},
		Hints:   result,
		Today:   time.Now(),
	})

	require.Equal(t, matchingmodel.DecisionAutoUpload, report.Outcome.Decision)
	require.Len(t, report.AppliedHints, 1)
	require.Equal(t, "resolved", report.AppliedHints[0].Effect)
}

// TestTypeCandidateScoring covers the alias-position scoring rule (spec.md
// §4.2 step 2): a leading-code match scores 0.9, a mid-string substring
// match scores 0.6.
func TestTypeCandidateScoring(t *testing.T) {
	at := autonomosType()
	exact := candidateTypes(matchingmodel.PendingRequirement{}, matchingmodel.NormalizedInputs{NormalizedText: "t205.0 recibo", LeadingCode: "t205.0"}, []*repomodel.DocumentType{at})
	require.Len(t, exact, 1)
	require.InDelta(t, 0.9, exact[0].Confidence, 1e-9)

	contains := candidateTypes(matchingmodel.PendingRequirement{}, matchingmodel.NormalizedInputs{NormalizedText: "recibo de cuota autonomos extra"}, []*repomodel.DocumentType{at})
	require.Len(t, contains, 1)
	require.InDelta(t, 0.6, contains[0].Confidence, 1e-9)
}
