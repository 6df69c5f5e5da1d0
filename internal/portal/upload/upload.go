// Package upload implements the single-item upload sequence of spec.md
// §4.3.6: re-locate, open the form, fill declarative date fields, attach
// the file, submit once, and verify the item cleared from the grid.
package upload

import (
	"fmt"
	"time"

	"github.com/andreypavlenko/caesub/internal/coreerr"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
)

// Page is the minimal portal-page surface the upload sequence drives. A
// connector implementation (internal/portal/connector/*) supplies it so
// this package has no direct go-rod dependency — it only encodes sequencing
// and the evidence/verification contract.
type Page interface {
	LocateByItemKey(pendingItemKey string) (bool, error)
	OpenUploadForm() error
	FillDateField(name string, value time.Time) error
	AttachFile(localPath string) error
	Submit() error
	WaitConfirmation() (bool, error)
	ItemStillPending(pendingItemKey string) (bool, error)
	Screenshot() ([]byte, error)
}

// Request bundles one upload request.
type Request struct {
	Pending   matchingmodel.PendingRequirement
	LocalPath string
	Rule      *rulesmodel.SubmissionRule
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// Result is the per-item outcome plus the evidence captured along the way.
type Result struct {
	ScreenshotBefore []byte
	ScreenshotAfter  []byte
	FormSnapshot     map[string]string
}

// Run executes spec.md §4.3.6 end-to-end for one item, re-paging once via
// the page's own retry inside LocateByItemKey if the connector implements
// that, and returning a coreerr.Error on every named failure mode.
func Run(p Page, req Request) (Result, error) {
	var result Result

	found, err := p.LocateByItemKey(req.Pending.PendingItemKey)
	if err != nil {
		return result, fmt.Errorf("upload: locate item: %w", err)
	}
	if !found {
		return result, coreerr.New(coreerr.CodeExecItemNotFoundAtExecution, coreerr.StageExecution, coreerr.SeverityError,
			"pending item could not be re-located at execution time").
			WithDetails(map[string]string{"pending_item_key": req.Pending.PendingItemKey})
	}

	if before, err := p.Screenshot(); err == nil {
		result.ScreenshotBefore = before
	}

	if err := p.OpenUploadForm(); err != nil {
		return result, fmt.Errorf("upload: open form: %w", err)
	}

	result.FormSnapshot = make(map[string]string)
	if req.Rule != nil {
		for _, field := range req.Rule.Form.DateFields {
			val := resolveDateField(field, req.ValidFrom, req.ValidTo)
			if val == nil {
				continue
			}
			if err := p.FillDateField(field, *val); err != nil {
				return result, fmt.Errorf("upload: fill date field %q: %w", field, err)
			}
			result.FormSnapshot[field] = val.Format("2006-01-02")
		}
	}

	if err := p.AttachFile(req.LocalPath); err != nil {
		return result, fmt.Errorf("upload: attach file: %w", err)
	}

	if err := p.Submit(); err != nil {
		return result, fmt.Errorf("upload: submit: %w", err)
	}

	confirmed, err := p.WaitConfirmation()
	if err != nil {
		return result, fmt.Errorf("upload: wait confirmation: %w", err)
	}
	if !confirmed {
		return result, coreerr.New(coreerr.CodePostUploadVerificationFail, coreerr.StagePostcondition, coreerr.SeverityError,
			"upload submission produced no confirmation evidence")
	}

	if after, err := p.Screenshot(); err == nil {
		result.ScreenshotAfter = after
	}

	stillPending, err := p.ItemStillPending(req.Pending.PendingItemKey)
	if err != nil {
		return result, fmt.Errorf("upload: post-verify: %w", err)
	}
	if stillPending {
		return result, coreerr.New(coreerr.CodePostUploadVerificationFail, coreerr.StagePostcondition, coreerr.SeverityError,
			"UPLOAD_POST_VERIFICATION_FAILED: item still present in the pending grid after submit").
			WithDetails(map[string]string{"pending_item_key": req.Pending.PendingItemKey})
	}

	return result, nil
}

func resolveDateField(fieldName string, validFrom, validTo *time.Time) *time.Time {
	switch fieldName {
	case "valid_from", "fecha_desde":
		return validFrom
	case "valid_to", "fecha_hasta":
		return validTo
	default:
		return nil
	}
}
