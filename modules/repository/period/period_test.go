package period

import (
	"testing"
	"time"

	"github.com/andreypavlenko/caesub/modules/repository/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpectedPeriodsMonthly(t *testing.T) {
	today := date(2023, time.May, 15)
	got := ExpectedPeriods(model.PeriodKindMonth, today, 3)

	if len(got) != 3 {
		t.Fatalf("got %d periods, want 3", len(got))
	}
	want := []string{"2023-03", "2023-04", "2023-05"}
	for i, p := range got {
		if p.PeriodKey != want[i] {
			t.Errorf("period[%d] = %s, want %s", i, p.PeriodKey, want[i])
		}
	}
}

func TestExpectedPeriodsSortedAscending(t *testing.T) {
	today := date(2023, time.May, 15)
	got := ExpectedPeriods(model.PeriodKindMonth, today, 5)
	for i := 1; i < len(got); i++ {
		if !got[i-1].PeriodStart.Before(got[i].PeriodStart) {
			t.Fatal("expected_periods must be sorted ascending")
		}
	}
}

// TestInferPeriodKeyInjective covers testable property #3: for distinct
// source dates, infer_period_key must not collapse to the same key.
func TestInferPeriodKeyInjective(t *testing.T) {
	d1 := date(2023, time.May, 1)
	d2 := date(2023, time.June, 1)

	k1 := InferPeriodKey(model.PeriodKindMonth, &d1, nil, "")
	k2 := InferPeriodKey(model.PeriodKindMonth, &d2, nil, "")

	if k1 == k2 {
		t.Fatalf("expected distinct keys for distinct dates, got %q twice", k1)
	}
}

func TestInferPeriodKeyFromISOFilename(t *testing.T) {
	got := InferPeriodKey(model.PeriodKindMonth, nil, nil, "recibo_2023-05_final.pdf")
	if got != "2023-05" {
		t.Errorf("got %q want 2023-05", got)
	}
}

func TestInferPeriodKeyFromSpanishFullMonth(t *testing.T) {
	got := InferPeriodKey(model.PeriodKindMonth, nil, nil, "Ultimo Recibo Bancario Pago Cuota Autonomos (Mayo 2023).pdf")
	if got != "2023-05" {
		t.Errorf("got %q want 2023-05", got)
	}
}

func TestInferPeriodKeyFromSpanishAbbrevDate(t *testing.T) {
	got := InferPeriodKey(model.PeriodKindMonth, nil, nil, "comprobante-05-may-23.pdf")
	if got != "2023-05" {
		t.Errorf("got %q want 2023-05", got)
	}
}

func TestInferPeriodKeyReturnsEmptyWhenNoCandidate(t *testing.T) {
	got := InferPeriodKey(model.PeriodKindMonth, nil, nil, "documento_sin_fecha.pdf")
	if got != "" {
		t.Errorf("got %q want empty", got)
	}
}

func TestStatusOfPeriod(t *testing.T) {
	today := date(2023, time.June, 1)
	validTo := date(2023, time.May, 31)
	doc := &model.DocumentInstance{
		PeriodKey:        "2023-05",
		ComputedValidity: model.ComputedValidity{ValidTo: &validTo},
	}
	p := Period{PeriodKey: "2023-05"}

	got := StatusOfPeriod(p, []*model.DocumentInstance{doc}, today, 0)
	if got != PeriodLate {
		t.Errorf("got %s want LATE", got)
	}

	gotWithGrace := StatusOfPeriod(p, []*model.DocumentInstance{doc}, today, 5)
	if gotWithGrace != PeriodAvailable {
		t.Errorf("got %s want AVAILABLE within grace", gotWithGrace)
	}

	missing := StatusOfPeriod(Period{PeriodKey: "2023-06"}, []*model.DocumentInstance{doc}, today, 0)
	if missing != PeriodMissing {
		t.Errorf("got %s want MISSING", missing)
	}
}
