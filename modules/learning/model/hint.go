// Package model holds LearnedHint, the durable record produced when a
// human Decision Pack marks an item as a match (spec.md §3.1, §4.2.2).
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/andreypavlenko/caesub/internal/normalize"
)

type Strength string

const (
	StrengthExact Strength = "EXACT"
	StrengthSoft  Strength = "SOFT"
)

// LearnedMapping is what the hint resolves a matching pending to.
type LearnedMapping struct {
	TypeIDExpected     string `json:"type_id_expected"`
	LocalDocID         string `json:"local_doc_id"`
	LocalDocFingerprint string `json:"local_doc_fingerprint,omitempty"`
}

// Conditions scope when a hint applies; empty fields are wildcards.
type Conditions struct {
	SubjectKey               string `json:"subject_key,omitempty"`
	PersonKey                string `json:"person_key,omitempty"`
	PeriodKey                string `json:"period_key,omitempty"`
	PortalTypeLabelNormalized string `json:"portal_type_label_normalized,omitempty"`
}

// Matches reports whether the hint's conditions are satisfied by the given
// lookup context — an empty condition field is a wildcard that always
// matches.
func (c Conditions) Matches(subjectKey, personKey, periodKey, portalLabelNorm string) bool {
	if c.SubjectKey != "" && c.SubjectKey != subjectKey {
		return false
	}
	if c.PersonKey != "" && c.PersonKey != personKey {
		return false
	}
	if c.PeriodKey != "" && c.PeriodKey != periodKey {
		return false
	}
	if c.PortalTypeLabelNormalized != "" && c.PortalTypeLabelNormalized != portalLabelNorm {
		return false
	}
	return true
}

// LearnedHint is a durable, condition-bearing record nudging or resolving
// future matches based on a prior human decision.
type LearnedHint struct {
	HintID          string         `json:"hint_id"`
	ItemFingerprint string         `json:"item_fingerprint"`
	LearnedMapping  LearnedMapping `json:"learned_mapping"`
	Conditions      Conditions     `json:"conditions"`
	Strength        Strength       `json:"strength"`
	Disabled        bool           `json:"disabled"`
	Source          string         `json:"source"`
	PlanID          string         `json:"plan_id,omitempty"`
	DecisionPackID  string         `json:"decision_pack_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// canonicalContent is the deterministic payload HintID hashes over —
// everything that defines the hint's identity, excluding CreatedAt so
// regenerating the same decision is recognized as the same hint (spec.md
// §4.2.2: "generation is idempotent on hint_id").
type canonicalContent struct {
	ItemFingerprint string         `json:"item_fingerprint"`
	LearnedMapping  LearnedMapping `json:"learned_mapping"`
	Conditions      Conditions     `json:"conditions"`
	Strength        Strength       `json:"strength"`
}

// ComputeHintID derives hint_id as SHA-256 over the canonicalized content
// (spec.md §3.1: "hint_id = SHA-256 over canonicalized content").
func ComputeHintID(itemFingerprint string, mapping LearnedMapping, conditions Conditions, strength Strength) string {
	canon := canonicalContent{
		ItemFingerprint: normalize.Text(itemFingerprint),
		LearnedMapping:  mapping,
		Conditions:      conditions,
		Strength:        strength,
	}
	b, _ := json.Marshal(canon)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
