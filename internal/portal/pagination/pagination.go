// Package pagination implements the pending-grid pagination loop of
// spec.md §4.3.5: enumerate pages with a loop guard and key-based dedupe.
package pagination

import (
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
)

// PageExtractor produces the pending rows on the currently displayed page
// and reports whether a next-page control is present and enabled, plus a
// cheap signature of the current page (used for the loop guard).
type PageExtractor interface {
	ExtractRows() ([]matchingmodel.PendingRequirement, error)
	HasNextPage() (bool, error)
	ClickNextPage() error
	PageSignature() (string, error)
}

// Result is the outcome of a full pagination sweep.
type Result struct {
	Items        []matchingmodel.PendingRequirement
	PagesVisited int
	LoopGuardHit bool // testable property #11
}

// Enumerate walks pages until the next-page control is absent/disabled,
// maxPages is reached, or the observed page signature repeats (the loop
// guard of spec.md §4.3.5 / testable property #11). Items are deduplicated
// by pending_item_key across pages, keeping stable first-seen order.
func Enumerate(extractor PageExtractor, maxPages int) (Result, error) {
	seen := make(map[string]bool)
	var result Result
	var lastSignature string

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		sig, err := extractor.PageSignature()
		if err != nil {
			return result, err
		}
		if page > 1 && sig == lastSignature {
			result.LoopGuardHit = true
			break
		}
		lastSignature = sig

		rows, err := extractor.ExtractRows()
		if err != nil {
			return result, err
		}
		for _, row := range rows {
			key := row.PendingItemKey
			if key == "" {
				key = matchingmodel.ComputePendingItemKey(row.TipoDoc, row.Elemento, row.Empresa)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			result.Items = append(result.Items, row)
		}
		result.PagesVisited = page

		hasNext, err := extractor.HasNextPage()
		if err != nil {
			return result, err
		}
		if !hasNext {
			break
		}
		if maxPages > 0 && page >= maxPages {
			break
		}
		if err := extractor.ClickNextPage(); err != nil {
			return result, err
		}
	}

	return result, nil
}
