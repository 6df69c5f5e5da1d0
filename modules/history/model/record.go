// Package model holds SubmissionRecord, the history entry spec.md §3.1
// defines and the dedupe invariant is checked against.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/andreypavlenko/caesub/internal/normalize"
)

type Action string

const (
	ActionPlanned   Action = "planned"
	ActionSubmitted Action = "submitted"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// SubmissionRecord is one history entry (spec.md §3.1).
type SubmissionRecord struct {
	RecordID          string          `json:"record_id"`
	PlatformKey       string          `json:"platform_key"`
	CoordLabel        string          `json:"coord_label,omitempty"`
	CompanyKey        string          `json:"company_key,omitempty"`
	PersonKey         string          `json:"person_key,omitempty"`
	PendingFingerprint string         `json:"pending_fingerprint"`
	PendingSnapshot   json.RawMessage `json:"pending_snapshot,omitempty"`
	DocID             string          `json:"doc_id,omitempty"`
	TypeID            string          `json:"type_id,omitempty"`
	FileSHA256        string          `json:"file_sha256,omitempty"`
	Action            Action          `json:"action"`
	Decision          string          `json:"decision,omitempty"`
	RunID             string          `json:"run_id"`
	EvidencePath      string          `json:"evidence_path,omitempty"`
	Seq               uint64          `json:"seq"`
	CreatedAt         time.Time       `json:"created_at"`
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

// FingerprintInput is the set of normalized identifying fields the
// dedupe fingerprint is computed over (spec.md §3.1: "SHA-256 over
// normalized identifying fields of a pending").
type FingerprintInput struct {
	PlatformKey string
	CompanyKey  string
	PersonKey   string
	TypeID      string
	PeriodKey   string
	TipoDoc     string
	Elemento    string
}

// Fingerprint computes the stable dedupe key: SHA-256 over the normalized,
// pipe-joined identifying fields. Normalizing every field through the one
// shared normalize.Text pass (instead of ad hoc lowercasing) is what makes
// two textually-different-but-equivalent pendings collide on the same
// fingerprint.
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
