// Package service implements history recording and the dedupe check
// testable property #4 depends on.
package service

import (
	"context"
	"time"

	"github.com/andreypavlenko/caesub/modules/history/model"
	"github.com/andreypavlenko/caesub/modules/history/ports"
	"github.com/google/uuid"
)

type DedupeOutcome string

const (
	DedupeNone             DedupeOutcome = ""
	DedupeAlreadySubmitted DedupeOutcome = "skip_already_submitted"
	DedupeAlreadyPlanned   DedupeOutcome = "skip_already_planned"
)

type Service struct {
	repo  ports.RecordRepository
	clock func() time.Time
}

func NewService(repo ports.RecordRepository, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, clock: clock}
}

// CheckDedupe implements spec.md §4.2 step 7 / testable property #4: a
// prior submitted record for this fingerprint always wins (it is checked
// first), a prior planned record is reported only when no submitted record
// exists.
func (s *Service) CheckDedupe(ctx context.Context, fingerprint string) (DedupeOutcome, error) {
	matches, err := s.repo.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return DedupeNone, err
	}
	sawPlanned := false
	for _, r := range matches {
		if r.Action == model.ActionSubmitted {
			return DedupeAlreadySubmitted, nil
		}
		if r.Action == model.ActionPlanned {
			sawPlanned = true
		}
	}
	if sawPlanned {
		return DedupeAlreadyPlanned, nil
	}
	return DedupeNone, nil
}

// RecordPlanned writes a new "planned" history entry for a run (spec.md
// §4.5.3 step 3).
func (s *Service) RecordPlanned(ctx context.Context, runID string, fingerprint string, platformKey, companyKey, personKey, typeID string) (*model.SubmissionRecord, error) {
	seq, err := s.repo.NextSeq(ctx, runID)
	if err != nil {
		return nil, err
	}
	r := &model.SubmissionRecord{
		RecordID:           uuid.New().String(),
		PlatformKey:        platformKey,
		CompanyKey:         companyKey,
		PersonKey:          personKey,
		PendingFingerprint: fingerprint,
		TypeID:             typeID,
		Action:             model.ActionPlanned,
		RunID:              runID,
		Seq:                seq,
		CreatedAt:          s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// MarkSubmitted transitions a planned record to submitted on upload success
// (spec.md §4.5.3 step 5).
func (s *Service) MarkSubmitted(ctx context.Context, r *model.SubmissionRecord, docID, fileSHA256, evidencePath string) error {
	now := s.clock().UTC()
	r.Action = model.ActionSubmitted
	r.DocID = docID
	r.FileSHA256 = fileSHA256
	r.EvidencePath = evidencePath
	r.SubmittedAt = &now
	return s.repo.Update(ctx, r)
}

// MarkFailed transitions a planned record to failed on upload failure
// (spec.md §4.5.3 step 5).
func (s *Service) MarkFailed(ctx context.Context, r *model.SubmissionRecord, errMessage string) error {
	r.Action = model.ActionFailed
	r.ErrorMessage = errMessage
	return s.repo.Update(ctx, r)
}

func (s *Service) List(ctx context.Context) ([]*model.SubmissionRecord, error) {
	return s.repo.List(ctx)
}

// ArchiveOlderThan is implemented by the concrete repository; exposed here
// for callers (e.g. a maintenance job) that only hold the service.
type Archiver interface {
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

func (s *Service) Archive(ctx context.Context, retentionMonths int) (int, error) {
	archiver, ok := s.repo.(Archiver)
	if !ok {
		return 0, nil
	}
	cutoff := s.clock().UTC().AddDate(0, -retentionMonths, 0)
	return archiver.ArchiveOlderThan(ctx, cutoff)
}
