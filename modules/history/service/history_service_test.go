package service

import (
	"context"
	"testing"
	"time"

	"github.com/andreypavlenko/caesub/modules/history/model"
	"github.com/andreypavlenko/caesub/modules/history/repository"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestDedupeLaw covers testable property #4: a prior submitted record for
// fingerprint f makes any new matching of f resolve to SKIP_ALREADY_SUBMITTED.
func TestDedupeLaw(t *testing.T) {
	root := t.TempDir()
	repo := repository.NewHistoryStore(root)
	svc := NewService(repo, fixedClock(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	fp := "abc123"
	record, err := svc.RecordPlanned(ctx, "run-1", fp, "acme-portal", "ACME", "ERM", "T104")
	if err != nil {
		t.Fatalf("RecordPlanned: %v", err)
	}

	outcome, err := svc.CheckDedupe(ctx, fp)
	if err != nil {
		t.Fatalf("CheckDedupe: %v", err)
	}
	if outcome != DedupeAlreadyPlanned {
		t.Fatalf("got %s, want DedupeAlreadyPlanned before submission", outcome)
	}

	if err := svc.MarkSubmitted(ctx, record, "doc-1", "sha", "evidence/path"); err != nil {
		t.Fatalf("MarkSubmitted: %v", err)
	}

	outcome, err = svc.CheckDedupe(ctx, fp)
	if err != nil {
		t.Fatalf("CheckDedupe after submit: %v", err)
	}
	if outcome != DedupeAlreadySubmitted {
		t.Fatalf("got %s, want DedupeAlreadySubmitted", outcome)
	}
}

func TestFingerprintStableAcrossEquivalentText(t *testing.T) {
	a := model.Fingerprint(model.FingerprintInput{PlatformKey: "ACME", TipoDoc: "Último Recibo"})
	b := model.Fingerprint(model.FingerprintInput{PlatformKey: "acme", TipoDoc: "ULTIMO RECIBO"})
	if a != b {
		t.Errorf("expected normalized fingerprints to collide, got %s vs %s", a, b)
	}
}

func TestNextSeqMonotonicPerRun(t *testing.T) {
	root := t.TempDir()
	repo := repository.NewHistoryStore(root)
	svc := NewService(repo, fixedClock(time.Now()))
	ctx := context.Background()

	r1, err := svc.RecordPlanned(ctx, "run-1", "fp1", "acme", "ACME", "", "T1")
	if err != nil {
		t.Fatalf("RecordPlanned 1: %v", err)
	}
	r2, err := svc.RecordPlanned(ctx, "run-1", "fp2", "acme", "ACME", "", "T1")
	if err != nil {
		t.Fatalf("RecordPlanned 2: %v", err)
	}
	if r2.Seq <= r1.Seq {
		t.Fatalf("expected strictly increasing seq, got %d then %d", r1.Seq, r2.Seq)
	}
}
