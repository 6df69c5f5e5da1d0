package ports

import (
	"context"

	"github.com/andreypavlenko/caesub/modules/history/model"
)

type RecordRepository interface {
	Create(ctx context.Context, r *model.SubmissionRecord) error
	Update(ctx context.Context, r *model.SubmissionRecord) error
	List(ctx context.Context) ([]*model.SubmissionRecord, error)
	// FindByFingerprint returns every record (active, non-archived) sharing
	// the given pending fingerprint, in the order List returns them; no
	// recency ordering is applied.
	FindByFingerprint(ctx context.Context, fingerprint string) ([]*model.SubmissionRecord, error)
	// NextSeq returns the next monotonic sequence number for runID (spec.md
	// §5: "History records within a run are totally ordered").
	NextSeq(ctx context.Context, runID string) (uint64, error)
}
