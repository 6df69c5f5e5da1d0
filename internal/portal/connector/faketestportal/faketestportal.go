// Package faketestportal is a Connector implementation used only from
// _test.go files (spec.md §9 Open Question: "whether a fake uploader
// belongs in the Core or the test harness" — resolved here as test
// harness only; cmd/api never imports this package).
package faketestportal

import (
	"fmt"
	"sync"

	"github.com/andreypavlenko/caesub/internal/portal/upload"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	repomodel "github.com/andreypavlenko/caesub/modules/repository/model"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
)

// Portal is an in-memory fake that drives no real browser; ExtractPending
// returns a fixed, caller-supplied fixture and UploadOne records what it
// was asked to upload for test assertions.
type Portal struct {
	Pending []matchingmodel.PendingRequirement

	mu       sync.Mutex
	uploaded []UploadedItem
	closed   bool
}

// UploadedItem records one UploadOne call for test assertions.
type UploadedItem struct {
	Pending matchingmodel.PendingRequirement
	DocID   string
}

// New constructs a fake portal seeded with a fixed pending-item fixture.
func New(pending []matchingmodel.PendingRequirement) *Portal {
	return &Portal{Pending: pending}
}

func (p *Portal) Login() error { return nil }

func (p *Portal) NavigateToPending() error { return nil }

func (p *Portal) ExtractPending(maxPages int) ([]matchingmodel.PendingRequirement, error) {
	if maxPages > 0 && maxPages < len(p.Pending) {
		return p.Pending[:maxPages], nil
	}
	return p.Pending, nil
}

func (p *Portal) UploadOne(pending matchingmodel.PendingRequirement, doc *repomodel.DocumentInstance, rule *rulesmodel.SubmissionRule) (upload.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return upload.Result{}, fmt.Errorf("faketestportal: upload after close")
	}
	p.uploaded = append(p.uploaded, UploadedItem{Pending: pending, DocID: doc.DocID})
	return upload.Result{FormSnapshot: map[string]string{}}, nil
}

func (p *Portal) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Uploaded returns a snapshot of every UploadOne call so far.
func (p *Portal) Uploaded() []UploadedItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]UploadedItem, len(p.uploaded))
	copy(out, p.uploaded)
	return out
}
