// Package grid implements deterministic frame and grid selection (spec.md
// §4.3.2): choosing the pending-grid frame by priority order and waiting
// for the grid to reach a loadable, unambiguous state.
package grid

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/andreypavlenko/caesub/internal/coreerr"
)

// frameURLSubstrings is priority-3 of spec.md §4.3.2: any of these appearing
// in a frame's URL marks it as the pending grid.
var frameURLSubstrings = []string{"subcontratas", "documento", "gestion_documental", "pendiente"}

// FindGridFrame selects the grid frame from page by the priority cascade of
// spec.md §4.3.2, stopping at the first match.
func FindGridFrame(page *rod.Page) (*rod.Page, error) {
	frames, err := page.ElementsX("//iframe | //frame")
	if err != nil {
		return nil, fmt.Errorf("grid: list frames: %w", err)
	}

	var candidates []*rod.Page
	for _, el := range frames {
		frame, err := el.Frame()
		if err != nil {
			continue
		}
		candidates = append(candidates, frame)
	}

	// Priority 1: frame name=f3.
	for _, f := range candidates {
		if name, err := f.Eval(`() => window.name`); err == nil && name.Value.Str() == "f3" {
			return f, nil
		}
	}

	// Priority 2: frame URL contains buscador.asp?Apartado_ID=3.
	for _, f := range candidates {
		if info, err := f.Info(); err == nil && strings.Contains(info.URL, "buscador.asp?Apartado_ID=3") {
			return f, nil
		}
	}

	// Priority 3: frame URL contains any known pending-documentation substring.
	for _, f := range candidates {
		info, err := f.Info()
		if err != nil {
			continue
		}
		for _, sub := range frameURLSubstrings {
			if strings.Contains(strings.ToLower(info.URL), sub) {
				return f, nil
			}
		}
	}

	// Priority 4: frame containing a unique table.hdr header selector.
	for _, f := range candidates {
		if has, _, err := f.Has("table.hdr"); err == nil && has {
			return f, nil
		}
	}

	return nil, coreerr.New(coreerr.CodePreDHXBlockerNotDismissed, coreerr.StagePrecondition, coreerr.SeverityError,
		"no frame matched the pending-grid selection cascade")
}

// Readiness describes whether the grid is ready for extraction (spec.md
// §4.3.2): spinner absent, header present, and at least one of a data row or
// an explicit "no results" indicator.
type Readiness struct {
	SpinnerAbsent   bool
	HeaderPresent   bool
	HasDataRow      bool
	HasNoResultsTag bool
}

// Ready reports whether the grid is in a loadable, extractable state.
func (r Readiness) Ready() bool {
	return r.SpinnerAbsent && r.HeaderPresent && (r.HasDataRow || r.HasNoResultsTag)
}

func observe(frame *rod.Page) (Readiness, error) {
	spinnerPresent, _, err := frame.Has(".spinner, .loading")
	if err != nil {
		return Readiness{}, fmt.Errorf("grid: check spinner: %w", err)
	}
	headerPresent, _, err := frame.Has("table.hdr")
	if err != nil {
		return Readiness{}, fmt.Errorf("grid: check header: %w", err)
	}
	hasRow, _, err := frame.Has("table.hdr tr.data")
	if err != nil {
		return Readiness{}, fmt.Errorf("grid: check data row: %w", err)
	}
	hasNoResults, _, err := frame.Has(".no-results, .sin-resultados")
	if err != nil {
		return Readiness{}, fmt.Errorf("grid: check no-results indicator: %w", err)
	}
	return Readiness{
		SpinnerAbsent:   !spinnerPresent,
		HeaderPresent:   headerPresent,
		HasDataRow:      hasRow,
		HasNoResultsTag: hasNoResults,
	}, nil
}

// WaitReady polls the grid frame until Ready() or timeout, retrying once
// with a bounded wait when only the header is present (spec.md §4.3.2: "If
// only the header is present, wait up to a bounded timeout and retry once").
func WaitReady(frame *rod.Page, timeout time.Duration) (Readiness, error) {
	deadline := time.Now().Add(timeout)
	var last Readiness
	for {
		r, err := observe(frame)
		if err != nil {
			return Readiness{}, err
		}
		last = r
		if r.Ready() {
			return r, nil
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	// One bounded retry when only the header surfaced (a render still in flight).
	if last.HeaderPresent && !last.HasDataRow && !last.HasNoResultsTag {
		time.Sleep(timeout)
		return observe(frame)
	}
	return last, coreerr.New(coreerr.CodePreDHXBlockerNotDismissed, coreerr.StagePrecondition, coreerr.SeverityError,
		"pending grid did not reach a ready state within the timeout")
}
