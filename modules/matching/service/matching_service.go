// Package service implements the Matching Engine (spec.md §4.2): a
// deterministic, side-effect-free pending->document resolution. Every I/O
// dependency (repository listings, rule catalog, learning hint lookup,
// history dedupe) is resolved by the caller (modules/workflow/service) and
// handed to Match as a plain snapshot, so Match itself is a pure function
// of its arguments plus the injected "today" — satisfying testable
// property #2 the same way modules/repository/validity.Compute does.
package service

import (
	"sort"
	"strings"
	"time"

	learningmodel "github.com/andreypavlenko/caesub/modules/learning/model"
	learningsvc "github.com/andreypavlenko/caesub/modules/learning/service"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	repomodel "github.com/andreypavlenko/caesub/modules/repository/model"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
)

// ScopeFilter is the caller-requested subject scoping (spec.md §4.2 step
//3); ResolvedPersonKey/ResolvedCompanyKey carry the outcome of subject
// resolution against the external person/company catalogs (out of Core
// scope per spec.md §1) so the engine only ever checks consistency, never
// performs the lookup itself.
type ScopeFilter struct {
	CompanyKey         string
	PersonKey          string
	ResolvedCompanyKey string
	ResolvedPersonKey  string
}

func (f ScopeFilter) mismatched() bool {
	if f.ResolvedCompanyKey != "" && f.CompanyKey != "" && f.ResolvedCompanyKey != f.CompanyKey {
		return true
	}
	if f.ResolvedPersonKey != "" && f.PersonKey != "" && f.ResolvedPersonKey != f.PersonKey {
		return true
	}
	return false
}

// DedupeOutcome mirrors history/service.DedupeOutcome's closed set, kept
// as its own type here so the matching engine package has no dependency
// on history/service beyond this value.
type DedupeOutcome string

const (
	DedupeNone             DedupeOutcome = ""
	DedupeAlreadySubmitted DedupeOutcome = "skip_already_submitted"
	DedupeAlreadyPlanned   DedupeOutcome = "skip_already_planned"
)

// Input bundles everything Match needs: the pending item, scope filters,
// the full type/document/rule snapshots, the learning-hint resolution for
// this item's fingerprint, the history dedupe outcome, and "today".
type Input struct {
	Pending    matchingmodel.PendingRequirement
	Scope      ScopeFilter
	Types      []*repomodel.DocumentType
	Docs       []*repomodel.DocumentInstance
	Rules      []*rulesmodel.SubmissionRule
	Hints      learningsvc.ResolveResult
	Fingerprint string
	Dedupe     DedupeOutcome
	Today      time.Time
}

const ambiguityMargin = 0.1

// Match runs the deterministic pending->document resolution of spec.md
// §4.2 and returns the full debug report (§3.1). Decision/ReasonCode are
// always set together; PrimaryReasonCode is never the zero value.
func Match(in Input) matchingmodel.MatchingDebugReport {
	report := matchingmodel.MatchingDebugReport{
		PendingItemKey: in.Pending.PendingItemKey,
		Inputs:         in.Pending.Normalize(),
	}

	// Step 7 (checked first, per spec.md testable property #4: a prior
	// submitted record always wins regardless of how well the item would
	// otherwise match).
	if in.Dedupe == DedupeAlreadySubmitted {
		report.Outcome = skipOutcome(matchingmodel.ReasonSkipAlreadySubmitted)
		return report
	}
	if in.Dedupe == DedupeAlreadyPlanned {
		report.Outcome = skipOutcome(matchingmodel.ReasonSkipAlreadyPlanned)
		return report
	}

	// Step 3: scope resolution.
	if in.Scope.mismatched() {
		report.Outcome = reviewOutcome(matchingmodel.ReasonScopeMismatch, 0, "requested scope filters conflict with the resolved subject")
		return report
	}

	// Step 2: type candidates by alias.
	candidates := candidateTypes(in.Pending, in.Inputs(), in.Types)
	report.CandidateTypes = candidates
	if len(candidates) == 0 {
		report.Outcome = noMatchOutcome(matchingmodel.ReasonNoLocalMatch, "no document type alias matched the pending text")
		return report
	}

	best := candidates[0]
	docType := typeByID(in.Types, best.TypeID)
	if docType == nil {
		report.Outcome = noMatchOutcome(matchingmodel.ReasonNoLocalMatch, "matched type not found in catalog")
		return report
	}
	if !docType.Active {
		report.Outcome = reviewOutcome(matchingmodel.ReasonTypeInactive, best.Confidence, "matched document type is inactive")
		return report
	}

	// Step 6: learning hints applied before ranking.
	if in.Hints.Effect == learningsvc.EffectResolved && in.Hints.Mapping != nil {
		report.AppliedHints = appliedHintsFrom(in.Hints)
		return resolveViaHint(report, in, *in.Hints.Mapping)
	}

	// Step 4: document search.
	periodKey := resolvePendingPeriod(in.Pending, in.Inputs())
	docCandidates, filterNote := searchDocuments(in, docType, best.TypeID, periodKey)
	report.CandidateDocs = docCandidates
	report.AppliedHints = appliedHintsFrom(in.Hints)

	scored := keptCandidates(docCandidates)
	boost := 0.0
	if in.Hints.Effect == learningsvc.EffectBoosted {
		boost = in.Hints.Confidence
	}
	for i := range scored {
		scored[i].Score += boost
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if docType.PeriodKind != repomodel.PeriodKindNone && periodKey == "" {
		report.Outcome = reviewOutcome(matchingmodel.ReasonMissingDocForPeriod, best.Confidence, "pending period could not be determined")
		return report
	}

	if len(scored) == 0 {
		for _, c := range docCandidates {
			if c.FilterOutcome == "missing_local_file" {
				report.Outcome = reviewOutcome(matchingmodel.ReasonMissingLocalFile, c.Score, "matched document's file is missing from the repository")
				return report
			}
		}
		reason := "no local document covers the detected period"
		if filterNote == noDocsForTypeReason {
			reason = "no local document exists for the matched type"
		}
		report.Outcome = reviewOutcome(matchingmodel.ReasonMissingDocForPeriod, best.Confidence, reason)
		return report
	}

	if len(scored) >= 2 && scored[0].Score-scored[1].Score < ambiguityMargin {
		report.Outcome = reviewOutcome(matchingmodel.ReasonAmbiguousMatch, scored[0].Score, "two or more candidate documents scored within 0.1 of each other")
		return report
	}

	chosen := scored[0]
	doc := docByID(in.Docs, chosen.DocID)
	if doc == nil || !fileExists(doc) {
		report.Outcome = reviewOutcome(matchingmodel.ReasonMissingLocalFile, chosen.Score, "matched document's file is missing from the repository")
		return report
	}

	report.Outcome = matchingmodel.Outcome{
		Decision:            matchingmodel.DecisionAutoUpload,
		LocalDocsConsidered: len(docCandidates),
		PrimaryReasonCode:   matchingmodel.ReasonMatchOK,
		AppliedHints:        report.AppliedHints,
		Confidence:          chosen.Score,
		LocalDocRef:         &matchingmodel.LocalDocRef{DocID: doc.DocID, TypeID: doc.TypeID},
	}
	return report
}

func (in Input) Inputs() matchingmodel.NormalizedInputs {
	return in.Pending.Normalize()
}

// ResolveTypeAndPeriod pre-resolves the best type-alias candidate and the
// pending's detected period for a pending item, independent of Match. The
// apply workflow needs both before it can compute the dedupe fingerprint
// (spec.md §3.1 Fingerprint, whose FingerprintInput carries type_id and
// period_key) and before history.CheckDedupe can run as Match's own step 7
// precondition. Returns "" for either value when no type candidate exists.
func ResolveTypeAndPeriod(pending matchingmodel.PendingRequirement, types []*repomodel.DocumentType) (typeID, periodKey string) {
	inputs := pending.Normalize()
	candidates := candidateTypes(pending, inputs, types)
	if len(candidates) == 0 {
		return "", resolvePendingPeriod(pending, inputs)
	}
	return candidates[0].TypeID, resolvePendingPeriod(pending, inputs)
}

func skipOutcome(reason matchingmodel.ReasonCode) matchingmodel.Outcome {
	return matchingmodel.Outcome{Decision: matchingmodel.DecisionSkip, PrimaryReasonCode: reason}
}

func noMatchOutcome(reason matchingmodel.ReasonCode, hint string) matchingmodel.Outcome {
	return matchingmodel.Outcome{Decision: matchingmodel.DecisionNoMatch, PrimaryReasonCode: reason, HumanHint: hint}
}

func reviewOutcome(reason matchingmodel.ReasonCode, confidence float64, hint string) matchingmodel.Outcome {
	return matchingmodel.Outcome{Decision: matchingmodel.DecisionReviewRequired, PrimaryReasonCode: reason, Confidence: confidence, HumanHint: hint}
}

func appliedHintsFrom(r learningsvc.ResolveResult) []matchingmodel.AppliedHint {
	var out []matchingmodel.AppliedHint
	for _, id := range r.MatchedHints {
		effect := string(r.Effect)
		out = append(out, matchingmodel.AppliedHint{HintID: id, Effect: effect})
	}
	for _, id := range r.IgnoredHints {
		out = append(out, matchingmodel.AppliedHint{HintID: id, Effect: "ignored"})
	}
	return out
}

func resolveViaHint(report matchingmodel.MatchingDebugReport, in Input, mapping learningmodel.LearnedMapping) matchingmodel.MatchingDebugReport {
	doc := docByID(in.Docs, mapping.LocalDocID)
	if doc == nil || !fileExists(doc) {
		report.Outcome = reviewOutcome(matchingmodel.ReasonMissingLocalFile, 1.0, "learning hint points at a document that no longer exists")
		return report
	}
	report.Outcome = matchingmodel.Outcome{
		Decision:            matchingmodel.DecisionAutoUpload,
		LocalDocsConsidered: 1,
		PrimaryReasonCode:   matchingmodel.ReasonMatchOK,
		AppliedHints:        report.AppliedHints,
		Confidence:          1.0,
		LocalDocRef:         &matchingmodel.LocalDocRef{DocID: doc.DocID, TypeID: doc.TypeID},
	}
	return report
}

// candidateTypes implements spec.md §4.2 step 2: aliases contained in the
// normalized text score by position, a leading code matching an alias
// exactly is treated as exact, and the curated seed aliases (configured on
// the type itself via PlatformAlias) never require extra setup.
func candidateTypes(pending matchingmodel.PendingRequirement, inputs matchingmodel.NormalizedInputs, types []*repomodel.DocumentType) []matchingmodel.CandidateType {
	var out []matchingmodel.CandidateType
	for _, t := range types {
		best := matchingmodel.CandidateType{}
		for _, alias := range t.PlatformAlias {
			if alias == "" {
				continue
			}
			var score float64
			switch {
			case inputs.LeadingCode != "" && inputs.LeadingCode == alias:
				score = 0.9
			case strings.HasPrefix(inputs.NormalizedText, alias):
				score = 0.9
			case strings.HasPrefix(inputs.NormalizedText, alias[:minInt(len(alias), 3)]):
				score = 0.75
			case strings.Contains(inputs.NormalizedText, alias):
				score = 0.6
			default:
				continue
			}
			if score > best.Confidence {
				best = matchingmodel.CandidateType{TypeID: t.TypeID, Confidence: score, MatchedAlias: alias}
			}
		}
		if best.Confidence > 0 {
			out = append(out, best)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func typeByID(types []*repomodel.DocumentType, id string) *repomodel.DocumentType {
	for _, t := range types {
		if t.TypeID == id {
			return t
		}
	}
	return nil
}

func docByID(docs []*repomodel.DocumentInstance, id string) *repomodel.DocumentInstance {
	for _, d := range docs {
		if d.DocID == id {
			return d
		}
	}
	return nil
}

func fileExists(d *repomodel.DocumentInstance) bool {
	return d.StoredPath != ""
}

func resolvePendingPeriod(pending matchingmodel.PendingRequirement, inputs matchingmodel.NormalizedInputs) string {
	if pending.DetectedPeriod != "" {
		return pending.DetectedPeriod
	}
	return inputs.MonthYearToken
}

const noDocsForTypeReason = "no documents of this type exist locally"

// searchDocuments implements spec.md §4.2 step 4: primary query by
// (type_id, company_key, person_key, period_key?), a worker-scope fallback
// retrying without company_key when the primary query returns nothing, and
// the additive/subtractive scoring rule.
func searchDocuments(in Input, docType *repomodel.DocumentType, typeID, periodKey string) ([]matchingmodel.CandidateDoc, string) {
	var anyOfType bool
	var out []matchingmodel.CandidateDoc

	tryFilter := func(requireCompany bool) []matchingmodel.CandidateDoc {
		var hits []matchingmodel.CandidateDoc
		for _, d := range in.Docs {
			if d.TypeID != typeID {
				continue
			}
			anyOfType = true
			if requireCompany && in.Scope.CompanyKey != "" && d.CompanyKey != in.Scope.CompanyKey {
				continue
			}
			if in.Scope.PersonKey != "" && d.PersonKey != "" && d.PersonKey != in.Scope.PersonKey {
				continue
			}
			if docType.PeriodKind != repomodel.PeriodKindNone && periodKey != "" && d.PeriodKey != periodKey {
				continue
			}
			hits = append(hits, scoreDocument(d, periodKey, in.Today))
		}
		return hits
	}

	out = tryFilter(true)
	if len(out) == 0 && docType.Scope == repomodel.ScopeWorker {
		out = tryFilter(false) // worker-scope fallback: retry without company_key
	}
	if !anyOfType {
		return nil, noDocsForTypeReason
	}
	return out, ""
}

func scoreDocument(d *repomodel.DocumentInstance, periodKey string, today time.Time) matchingmodel.CandidateDoc {
	score := 0.6 // type-alias match is the entry condition into this function
	switch d.Status {
	case repomodel.StatusReviewed, repomodel.StatusReadyToSubmit:
		score += 0.3
	case repomodel.StatusDraft:
		score -= 0.2
	}
	if validityCoversPeriod(d, periodKey, today) {
		score += 0.2
	}
	filterOutcome := "kept"
	if !fileExists(d) {
		filterOutcome = "missing_local_file"
	}
	return matchingmodel.CandidateDoc{DocID: d.DocID, TypeID: d.TypeID, Score: score, FilterOutcome: filterOutcome}
}

func validityCoversPeriod(d *repomodel.DocumentInstance, periodKey string, today time.Time) bool {
	_, validTo := d.EffectiveValidity()
	if validTo == nil {
		return periodKey == "" || d.PeriodKey == periodKey
	}
	return !today.After(*validTo)
}

func keptCandidates(all []matchingmodel.CandidateDoc) []matchingmodel.CandidateDoc {
	var out []matchingmodel.CandidateDoc
	for _, c := range all {
		if c.FilterOutcome == "kept" {
			out = append(out, c)
		}
	}
	return out
}

// EnabledRulesOnly filters to the rules the caller should even consider,
// mirroring the filter rule resolution (spec.md §4.2 step 5) applies
// before calling rules/service.Resolve.
func EnabledRulesOnly(rules []*rulesmodel.SubmissionRule) []*rulesmodel.SubmissionRule {
	var out []*rulesmodel.SubmissionRule
	for _, r := range rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}
