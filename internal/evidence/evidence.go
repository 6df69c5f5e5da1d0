// Package evidence implements the per-run evidence manifest of spec.md
// §6.2–§6.3: DOM snapshots, screenshots, full HTML, and the manifest that
// indexes them with a sha256 per artifact.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/andreypavlenko/caesub/internal/platform/archive"
	"github.com/andreypavlenko/caesub/internal/platform/atomicstore"
)

// Kind is the artifact kind recorded in the manifest.
type Kind string

const (
	KindDOMSnapshot Kind = "dom_snapshot"
	KindFullHTML    Kind = "full_html"
	KindScreenshot  Kind = "screenshot"
	KindFormSnapshot Kind = "form_snapshot"
	KindLog         Kind = "log"
)

// criticalActions is the set of step names that always warrant full HTML +
// screenshot persistence, never just a partial DOM snapshot (spec.md §6.3).
var criticalActions = map[string]bool{
	"submit": true, "upload": true, "confirm": true, "payment": true,
	"delete": true, "send": true, "sign": true, "finalize": true,
}

// IsCritical reports whether a step name is one of spec.md §6.3's critical
// actions, which always persist full evidence regardless of outcome.
func IsCritical(stepName string) bool {
	return criticalActions[stepName]
}

// Artifact is one manifest entry (spec.md §6.3).
type Artifact struct {
	Kind         Kind   `json:"kind"`
	RelativePath string `json:"relative_path"`
	SHA256       string `json:"sha256"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Manifest accumulates artifacts for a single run and seals into
// runs/<run_id>/evidence_manifest.json.
type Manifest struct {
	RunID     string     `json:"run_id"`
	Artifacts []Artifact `json:"artifacts"`

	runDir  string
	archive *archive.Client // optional off-box mirror, nil when unconfigured
	mu      sync.Mutex
}

// NewManifest opens a manifest rooted at runDir (runs/<run_id>/). archiveClient
// may be nil — the S3 mirror is best-effort and never blocks the primary write.
func NewManifest(runID, runDir string, archiveClient *archive.Client) *Manifest {
	return &Manifest{RunID: runID, runDir: runDir, archive: archiveClient}
}

// WriteArtifact atomically writes data under runDir/relativePath, records it
// in the manifest, and mirrors it to S3 when configured (best-effort: a
// mirror failure never fails the write).
func (m *Manifest) WriteArtifact(kind Kind, relativePath string, data []byte) (Artifact, error) {
	full := filepath.Join(m.runDir, relativePath)
	if err := atomicstore.WriteFile(full, data); err != nil {
		return Artifact{}, fmt.Errorf("evidence: write %s: %w", relativePath, err)
	}
	sum := sha256.Sum256(data)
	art := Artifact{Kind: kind, RelativePath: relativePath, SHA256: hex.EncodeToString(sum[:]), SizeBytes: int64(len(data))}

	m.mu.Lock()
	m.Artifacts = append(m.Artifacts, art)
	m.mu.Unlock()

	if m.archive != nil {
		key := fmt.Sprintf("runs/%s/%s", m.RunID, relativePath)
		_ = m.archive.PutBlob(context.Background(), key, contentTypeFor(kind), data) // best-effort mirror, spec.md §4.1b
	}
	return art, nil
}

// Seal writes the manifest itself atomically. Safe to call repeatedly; each
// call overwrites with the current artifact set.
func (m *Manifest) Seal() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return atomicstore.WriteJSON(filepath.Join(m.runDir, "evidence_manifest.json"), m)
}

func contentTypeFor(kind Kind) string {
	switch kind {
	case KindScreenshot:
		return "image/png"
	case KindFullHTML:
		return "text/html"
	default:
		return "application/json"
	}
}

// Redact applies the token/DNI/email/password scrubbing spec.md §6.3
// requires on HTML and DOM snapshots before they are persisted. It is a
// best-effort text-level pass, not a full HTML parse, matching the scope of
// what the Core is required to redact (secrets, never structure).
func Redact(text string) string {
	return redactPatterns.ReplaceAllString(text, "[REDACTED]")
}
