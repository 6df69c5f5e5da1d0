// Package model holds the Matching Engine's input/output shapes (spec.md
// §3.1, §4.2): the scraped PendingRequirement, the closed Decision/ReasonCode
// enums, and the MatchingDebugReport every match produces.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/andreypavlenko/caesub/internal/normalize"
)

// PendingRequirement is one portal-side row produced by a scrape (spec.md
// §3.1). PendingItemKey is the stable composite key used for re-location
// during upload (spec.md §4.3.6) and pagination dedupe (§4.3.5).
type PendingRequirement struct {
	PendingItemKey  string `json:"pending_item_key"`
	TipoDoc         string `json:"tipo_doc"`
	Elemento        string `json:"elemento"`
	Empresa         string `json:"empresa"`
	DetectedPeriod  string `json:"detected_period_key,omitempty"`
	PlatformKey     string `json:"platform_key"`
	CoordLabel      string `json:"coord_label,omitempty"`
	RowRef          string `json:"row_ref,omitempty"` // opaque portal-side anchor (page index, DOM ref) for re-location
}

// ComputePendingItemKey derives the stable composite key from the
// normalized TIPO|ELEMENTO|EMPRESA fields (spec.md §3.1).
func ComputePendingItemKey(tipoDoc, elemento, empresa string) string {
	return normalize.Text(tipoDoc) + "|" + normalize.Text(elemento) + "|" + normalize.Text(empresa)
}

var leadingCodePattern = regexp.MustCompile(`^([a-z]\d{2,4}(?:\.\d+)?)\b`)

// DetectLeadingCode extracts a leading alphanumeric code like "T205.0" from
// normalized text (spec.md §4.2 step 1), or "" if none is present.
func DetectLeadingCode(normalizedText string) string {
	m := leadingCodePattern.FindStringSubmatch(normalizedText)
	if m == nil {
		return ""
	}
	return m[1]
}

var dniPattern = regexp.MustCompile(`\b(\d{8})[a-z]\b`)

// DetectDNI extracts a Spanish DNI (8 digits + letter) from normalized
// text, or "" if none is present.
func DetectDNI(normalizedText string) string {
	m := dniPattern.FindStringSubmatch(normalizedText)
	if m == nil {
		return ""
	}
	return m[0]
}

var (
	isoMonthYear = regexp.MustCompile(`(20\d{2})[-_]?(0[1-9]|1[0-2])`)
	yearPattern  = regexp.MustCompile(`20\d{2}`)
	esMonthNames = []string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// DetectMonthYearToken finds a Spanish or ISO month/year token in
// normalized text (spec.md §4.2 step 1), returning "" when none is found.
func DetectMonthYearToken(normalizedText string) string {
	if m := isoMonthYear.FindStringSubmatch(normalizedText); m != nil {
		return m[1] + "-" + m[2]
	}
	for i, name := range esMonthNames {
		if idx := strings.Index(normalizedText, name); idx >= 0 {
			// look for a nearby 4-digit year
			rest := normalizedText[idx:]
			if ym := yearPattern.FindString(rest); ym != "" {
				return fmt.Sprintf("%s-%02d", ym, i+1)
			}
		}
	}
	return ""
}

// NormalizedInputs is the normalized-text snapshot a MatchingDebugReport
// records (spec.md §3.1).
type NormalizedInputs struct {
	NormalizedText string `json:"normalized_text"`
	LeadingCode    string `json:"leading_code,omitempty"`
	MonthYearToken string `json:"month_year_token,omitempty"`
	DNI            string `json:"dni,omitempty"`
}

// Normalize builds the NormalizedInputs snapshot for a pending requirement
// (spec.md §4.2 step 1).
func (p *PendingRequirement) Normalize() NormalizedInputs {
	text := normalize.Text(p.TipoDoc + " " + p.Elemento + " " + p.Empresa)
	return NormalizedInputs{
		NormalizedText: text,
		LeadingCode:    DetectLeadingCode(text),
		MonthYearToken: DetectMonthYearToken(text),
		DNI:            DetectDNI(text),
	}
}

// FingerprintInput mirrors history/model.FingerprintInput's field set so
// the matching engine and the apply workflow compute the identical
// dedupe key from a PendingRequirement plus resolved subject/type.
type FingerprintInput struct {
	PlatformKey string
	CompanyKey  string
	PersonKey   string
	TypeID      string
	PeriodKey   string
	TipoDoc     string
	Elemento    string
}

// Fingerprint computes the SHA-256 dedupe key (spec.md §3.1), identical in
// construction to history/model.Fingerprint so the two never diverge.
func Fingerprint(in FingerprintInput) string {
	joined := normalize.Text(in.PlatformKey) + "|" +
		normalize.Text(in.CompanyKey) + "|" +
		normalize.Text(in.PersonKey) + "|" +
		normalize.Text(in.TypeID) + "|" +
		normalize.Text(in.PeriodKey) + "|" +
		normalize.Text(in.TipoDoc) + "|" +
		normalize.Text(in.Elemento)
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}
