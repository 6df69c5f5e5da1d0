// Package connector declares the typed Connector interface spec.md §9
// specifies in place of the original's duck-typed adapter object, plus a
// registry mapping platform_key to Connector constructors.
package connector

import (
	"github.com/andreypavlenko/caesub/internal/portal/upload"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	"github.com/andreypavlenko/caesub/modules/repository/model"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
)

// Connector drives one portal family end-to-end: login, navigation to the
// pending grid, extraction, matching hand-off, and single-item upload
// (spec.md §9). UploadOne returns the upload.Result evidence capture
// alongside any error so a caller can seal an evidence manifest regardless
// of outcome.
type Connector interface {
	Login() error
	NavigateToPending() error
	ExtractPending(maxPages int) ([]matchingmodel.PendingRequirement, error)
	UploadOne(pending matchingmodel.PendingRequirement, doc *model.DocumentInstance, rule *rulesmodel.SubmissionRule) (upload.Result, error)
	Close() error
}

// Constructor builds a Connector for one (platform, run) pair. Config is an
// opaque per-platform blob (login selectors, allow-listed hosts, coord
// list) sourced from the external platforms.json (spec.md §6.5) — the Core
// never parses it beyond what the constructor needs.
type Constructor func(platformKey string, config any) (Connector, error)

// Registry maps platform_key to the Constructor that builds its Connector,
// satisfying spec.md §9's "duck-typed connector registry becomes a typed
// interface... a registry maps platform_key -> Connector constructors".
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry; callers register connectors at
// startup (cmd/api/main.go).
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor for platformKey, overwriting any prior entry.
func (r *Registry) Register(platformKey string, ctor Constructor) {
	r.constructors[platformKey] = ctor
}

// Build constructs a Connector for platformKey, or reports that no
// connector is registered for it.
func (r *Registry) Build(platformKey string, config any) (Connector, error) {
	ctor, ok := r.constructors[platformKey]
	if !ok {
		return nil, ErrNoConnector(platformKey)
	}
	return ctor(platformKey, config)
}

// ErrNoConnector reports that platformKey has no registered Connector.
type ErrNoConnector string

func (e ErrNoConnector) Error() string {
	return "connector: no Connector registered for platform " + string(e)
}
