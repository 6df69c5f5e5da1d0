// Package period implements the Period Planner (spec.md §4.1.2): deriving
// the period kind a type expects, enumerating the expected period series
// for a subject over a horizon, classifying a period's status against a
// document subset, and inferring a period key from declared dates or a
// filename when no declared date exists.
package period

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/andreypavlenko/caesub/internal/normalize"
	"github.com/andreypavlenko/caesub/modules/repository/model"
)

// KindOf derives period_kind from the type's validity mode, the way
// spec.md §4.1.2 describes ("period_kind(type) -> {...} from validity
// mode"): the type's own declared PeriodKind is authoritative when set, and
// this is the fallback used by callers that only have the validity mode.
func KindOf(mode model.ValidityPolicyMode) model.PeriodKind {
	switch mode {
	case model.ValidityModeMonthly:
		return model.PeriodKindMonth
	case model.ValidityModeAnnual:
		return model.PeriodKindYear
	default:
		return model.PeriodKindNone
	}
}

// Period is one entry of an expected_periods series.
type Period struct {
	PeriodKey   string    `json:"period_key"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// ExpectedPeriods emits a sorted sequence of periods covering the requested
// horizon ending at "today" (spec.md §4.1.2).
func ExpectedPeriods(kind model.PeriodKind, today time.Time, monthsBack int) []Period {
	if kind == model.PeriodKindNone || monthsBack <= 0 {
		return nil
	}

	var periods []Period
	switch kind {
	case model.PeriodKindMonth:
		cursor := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		for i := 0; i < monthsBack; i++ {
			start := cursor.AddDate(0, -i, 0)
			end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
			periods = append(periods, Period{
				PeriodKey:   fmt.Sprintf("%04d-%02d", start.Year(), int(start.Month())),
				PeriodStart: start,
				PeriodEnd:   end,
			})
		}
	case model.PeriodKindQuarter:
		monthsNeeded := monthsBack
		quarters := (monthsNeeded + 2) / 3
		currentQuarter := (int(today.Month())-1)/3 + 1
		cursorYear, cursorQ := today.Year(), currentQuarter
		for i := 0; i < quarters; i++ {
			y, q := cursorYear, cursorQ-i
			for q <= 0 {
				q += 4
				y--
			}
			startMonth := time.Month((q-1)*3 + 1)
			start := time.Date(y, startMonth, 1, 0, 0, 0, 0, today.Location())
			end := start.AddDate(0, 3, 0).AddDate(0, 0, -1)
			periods = append(periods, Period{
				PeriodKey:   fmt.Sprintf("%04d-Q%d", y, q),
				PeriodStart: start,
				PeriodEnd:   end,
			})
		}
	case model.PeriodKindYear:
		years := (monthsBack + 11) / 12
		for i := 0; i < years; i++ {
			y := today.Year() - i
			start := time.Date(y, time.January, 1, 0, 0, 0, 0, today.Location())
			end := time.Date(y, time.December, 31, 0, 0, 0, 0, today.Location())
			periods = append(periods, Period{
				PeriodKey:   fmt.Sprintf("%04d", y),
				PeriodStart: start,
				PeriodEnd:   end,
			})
		}
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].PeriodStart.Before(periods[j].PeriodStart) })
	return periods
}

// PeriodStatus is the status_of_period outcome (spec.md §4.1.2).
type PeriodStatus string

const (
	PeriodAvailable PeriodStatus = "AVAILABLE"
	PeriodLate      PeriodStatus = "LATE"
	PeriodMissing   PeriodStatus = "MISSING"
)

// StatusOfPeriod classifies a period against a subset of documents sharing
// its period_key.
func StatusOfPeriod(p Period, docs []*model.DocumentInstance, today time.Time, graceDays uint) PeriodStatus {
	for _, d := range docs {
		if d.PeriodKey != p.PeriodKey {
			continue
		}
		_, validTo := d.EffectiveValidity()
		if validTo == nil || !today.After(*validTo) {
			return PeriodAvailable
		}
		graceDeadline := validTo.Add(time.Duration(graceDays) * 24 * time.Hour)
		if !today.After(graceDeadline) {
			return PeriodAvailable
		}
		return PeriodLate
	}
	return PeriodMissing
}

var (
	isoMonthPattern = regexp.MustCompile(`(20\d{2})[-_]?(0[1-9]|1[0-2])`)
	// dd-MMM-YY / dd-MMM-YYYY with a Spanish month abbreviation, e.g. "05-may-23".
	esShortDatePattern = regexp.MustCompile(`(?i)(\d{1,2})[-_](ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic)[-_](\d{2,4})`)
	// Full Spanish month name with a trailing or adjacent year, e.g. "Mayo 2023".
	esFullMonthPattern = regexp.MustCompile(`(?i)(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\D{0,5}(20\d{2})`)
)

// InferPeriodKey tries declared dates first, then regex extraction from the
// filename (spec.md §4.1.2). Returns "" when no reliable period is found —
// callers treat that as null/needs_period.
func InferPeriodKey(kind model.PeriodKind, issueDate, nameDate *time.Time, filename string) string {
	if kind == model.PeriodKindNone {
		return ""
	}
	if issueDate != nil {
		return formatPeriodKey(kind, *issueDate)
	}
	if nameDate != nil {
		return formatPeriodKey(kind, *nameDate)
	}

	normalized := normalize.Text(filename)

	if m := isoMonthPattern.FindStringSubmatch(normalized); m != nil {
		year, month := atoi(m[1]), atoi(m[2])
		return formatPeriodKey(kind, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
	}
	if m := esShortDatePattern.FindStringSubmatch(normalized); m != nil {
		month := monthFromSpanishToken(m[2])
		year := normalizeTwoDigitYear(atoi(m[3]))
		if month != 0 {
			return formatPeriodKey(kind, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
		}
	}
	if m := esFullMonthPattern.FindStringSubmatch(normalized); m != nil {
		month := monthFromSpanishToken(m[1])
		year := atoi(m[2])
		if month != 0 {
			return formatPeriodKey(kind, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
		}
	}
	return ""
}

func formatPeriodKey(kind model.PeriodKind, t time.Time) string {
	switch kind {
	case model.PeriodKindMonth:
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
	case model.PeriodKindQuarter:
		q := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", t.Year(), q)
	case model.PeriodKindYear:
		return fmt.Sprintf("%04d", t.Year())
	default:
		return ""
	}
}

func normalizeTwoDigitYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 70 {
		return 2000 + y
	}
	return 1900 + y
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
