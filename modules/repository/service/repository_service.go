// Package service implements the Document Repository's business logic
// (spec.md §4.1): catalog CRUD, upload with period inference and validity
// computation, and filtered listings — the same "service wraps ports"
// shape as the teacher's ResumeService.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andreypavlenko/caesub/internal/normalize"
	"github.com/andreypavlenko/caesub/modules/repository/model"
	"github.com/andreypavlenko/caesub/modules/repository/pdfmeta"
	"github.com/andreypavlenko/caesub/modules/repository/period"
	"github.com/andreypavlenko/caesub/modules/repository/ports"
	"github.com/andreypavlenko/caesub/modules/repository/validity"
	"github.com/google/uuid"
)

// Clock lets tests inject "today" instead of reading the wall clock,
// keeping upload/listing deterministic the way spec.md §9 requires ("a
// single explicit context ... tests construct it with seams for the
// clock").
type Clock func() time.Time

type Service struct {
	types ports.TypeRepository
	docs  ports.DocumentRepository
	clock Clock
}

func NewService(types ports.TypeRepository, docs ports.DocumentRepository, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{types: types, docs: docs, clock: clock}
}

// --- Types -------------------------------------------------------------

func (s *Service) ListTypes(ctx context.Context, q model.ListTypesQuery) ([]*model.DocumentType, int, error) {
	all, err := s.types.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	var filtered []*model.DocumentType
	for _, t := range all {
		if q.PeriodKind != "" && t.PeriodKind != q.PeriodKind {
			continue
		}
		if q.Scope != "" && t.Scope != q.Scope {
			continue
		}
		if q.Active != nil && t.Active != *q.Active {
			continue
		}
		if q.Query != "" {
			needle := normalize.Text(q.Query)
			haystack := normalize.Text(t.Name + " " + t.TypeID + " " + t.Description)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		filtered = append(filtered, t)
	}

	sortTypes(filtered, q.SortBy)

	total := len(filtered)
	if q.Page <= 0 || q.PageSize <= 0 {
		return filtered, total, nil
	}
	start := (q.Page - 1) * q.PageSize
	if start >= total {
		return []*model.DocumentType{}, total, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

func sortTypes(types []*model.DocumentType, sortBy string) {
	switch sortBy {
	case "type_id":
		sort.Slice(types, func(i, j int) bool { return types[i].TypeID < types[j].TypeID })
	case "period_kind":
		sort.Slice(types, func(i, j int) bool { return types[i].PeriodKind < types[j].PeriodKind })
	default: // "name" and "relevance" both fall back to a stable name sort
		sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	}
}

func (s *Service) CreateType(ctx context.Context, req *model.CreateTypeRequest) (*model.DocumentType, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, model.ErrNameRequired
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	now := s.clock().UTC()
	t := &model.DocumentType{
		TypeID:              req.TypeID,
		Name:                req.Name,
		Description:         req.Description,
		Scope:               req.Scope,
		ValidityPolicy:      req.ValidityPolicy,
		PeriodKind:          req.PeriodKind,
		PlatformAlias:       normalizeAliases(req.PlatformAlias),
		IssueDateRequired:   req.IssueDateRequired,
		AllowLateSubmission: req.AllowLateSubmission,
		LateSubmissionDays:  req.LateSubmissionDays,
		ValidityStartMode:   req.ValidityStartMode,
		Active:              active,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.types.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func normalizeAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, normalize.Text(a))
	}
	return out
}

func (s *Service) GetType(ctx context.Context, typeID string) (*model.DocumentType, error) {
	return s.types.GetByID(ctx, typeID)
}

func (s *Service) UpdateType(ctx context.Context, typeID string, req *model.UpdateTypeRequest) (*model.DocumentType, error) {
	t, err := s.types.GetByID(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, model.ErrNameRequired
		}
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.ValidityPolicy != nil {
		t.ValidityPolicy = *req.ValidityPolicy
	}
	if req.PeriodKind != nil {
		t.PeriodKind = *req.PeriodKind
	}
	if req.PlatformAlias != nil {
		t.PlatformAlias = normalizeAliases(req.PlatformAlias)
	}
	if req.IssueDateRequired != nil {
		t.IssueDateRequired = *req.IssueDateRequired
	}
	if req.AllowLateSubmission != nil {
		t.AllowLateSubmission = *req.AllowLateSubmission
	}
	if req.LateSubmissionDays != nil {
		t.LateSubmissionDays = req.LateSubmissionDays
	}
	if req.ValidityStartMode != "" {
		t.ValidityStartMode = req.ValidityStartMode
	}
	t.UpdatedAt = s.clock().UTC()
	if err := s.types.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteType(ctx context.Context, typeID string) error {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if d.TypeID == typeID {
			return model.ErrTypeInUse
		}
	}
	return s.types.Delete(ctx, typeID)
}

func (s *Service) ToggleActive(ctx context.Context, typeID string) (*model.DocumentType, error) {
	t, err := s.types.GetByID(ctx, typeID)
	if err != nil {
		return nil, err
	}
	t.Active = !t.Active
	t.UpdatedAt = s.clock().UTC()
	if err := s.types.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DuplicateType deep-copies a type by value excluding type_id and name
// (spec.md §4.1), auto-generating a unique id (<id>_COPY, _COPY_2, ...)
// when none is supplied. Satisfies testable property #8: three successive
// calls with no supplied id yield three distinct types and leave the
// original byte-for-byte unchanged.
func (s *Service) DuplicateType(ctx context.Context, typeID string, req *model.DuplicateTypeRequest) (*model.DocumentType, error) {
	original, err := s.types.GetByID(ctx, typeID)
	if err != nil {
		return nil, err
	}

	newID := req.NewTypeID
	if newID == "" {
		newID, err = s.nextCopyID(ctx, typeID)
		if err != nil {
			return nil, err
		}
	} else if existing, _ := s.types.GetByID(ctx, newID); existing != nil {
		return nil, model.ErrTypeIDConflict
	}

	clone := original.Clone()
	clone.TypeID = newID
	clone.Name = original.Name + " (copy)"
	now := s.clock().UTC()
	clone.CreatedAt = now
	clone.UpdatedAt = now

	if err := s.types.Create(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

func (s *Service) nextCopyID(ctx context.Context, typeID string) (string, error) {
	base := typeID + "_COPY"
	if _, err := s.types.GetByID(ctx, base); err != nil {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if _, err := s.types.GetByID(ctx, candidate); err != nil {
			return candidate, nil
		}
	}
}

// --- Documents -----------------------------------------------------------

func (s *Service) ListDocuments(ctx context.Context, q model.ListDocumentsQuery) ([]*model.DocumentInstance, error) {
	all, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.clock().UTC()

	var out []*model.DocumentInstance
	for _, d := range all {
		if q.TypeID != "" && d.TypeID != q.TypeID {
			continue
		}
		if q.Scope != "" && d.Scope != q.Scope {
			continue
		}
		if q.Status != "" && d.Status != q.Status {
			continue
		}
		if q.PeriodKey != "" && d.PeriodKey != q.PeriodKey {
			continue
		}
		if q.CompanyKey != "" && d.CompanyKey != q.CompanyKey {
			continue
		}
		if q.PersonKey != "" && d.PersonKey != q.PersonKey {
			continue
		}
		if q.ValidityStatus != "" && d.ValidityStatus(today, 15) != q.ValidityStatus {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) GetDocument(ctx context.Context, docID string) (*model.DocumentInstance, error) {
	return s.docs.GetByID(ctx, docID)
}

// Upload validates, stores, infers period, computes validity, and persists
// a new DocumentInstance (spec.md §4.1).
func (s *Service) Upload(ctx context.Context, req *model.UploadDocumentRequest) (*model.DocumentInstance, error) {
	docType, err := s.types.GetByID(ctx, req.TypeID)
	if err != nil {
		return nil, err
	}

	info, err := pdfmeta.Sniff(req.Content)
	if err != nil {
		return nil, model.ErrInvalidMIME
	}

	if err := validateSubjectKeys(docType.Scope, req.CompanyKey, req.PersonKey); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(req.Content)
	docID := uuid.New().String()

	validityStart := req.ValidityStartDate
	if docType.ValidityStartMode == model.ValidityStartModeIssueDate {
		validityStart = req.IssueDate
	}

	periodKey := req.PeriodKey
	needsPeriod := false
	if docType.PeriodKind != model.PeriodKindNone && periodKey == "" {
		periodKey = period.InferPeriodKey(docType.PeriodKind, coalesce(validityStart, req.IssueDate), info.CreationDate, req.FileName)
		if periodKey == "" {
			needsPeriod = true
		}
	}

	extracted := model.ExtractedMetadata{
		ValidityStartDate: validityStart,
		NameDate:          info.CreationDate,
	}
	computed := validity.Compute(docType.ValidityPolicy, validity.Metadata{
		ValidityStartDate: validityStart,
		IssueDate:         req.IssueDate,
		NameDate:          info.CreationDate,
	})

	now := s.clock().UTC()
	doc := &model.DocumentInstance{
		DocID:            docID,
		TypeID:           req.TypeID,
		Scope:            docType.Scope,
		CompanyKey:       req.CompanyKey,
		PersonKey:        req.PersonKey,
		FileNameOriginal: req.FileName,
		SHA256:           hex.EncodeToString(sum[:]),
		IssuedAt:         req.IssueDate,
		Extracted:        extracted,
		PeriodKind:       docType.PeriodKind,
		PeriodKey:        periodKey,
		NeedsPeriod:      needsPeriod,
		ComputedValidity: computed,
		Status:           model.StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	storedPath, err := s.docs.PutBlob(ctx, docID, "pdf", req.Content)
	if err != nil {
		return nil, fmt.Errorf("repository: store blob: %w", err)
	}
	doc.StoredPath = storedPath

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func coalesce(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}

func validateSubjectKeys(scope model.Scope, companyKey, personKey string) error {
	switch scope {
	case model.ScopeCompany:
		if companyKey == "" || personKey != "" {
			return model.ErrSubjectKeysInvalid
		}
	case model.ScopeWorker:
		if companyKey == "" || personKey == "" {
			return model.ErrSubjectKeysInvalid
		}
	}
	return nil
}

func (s *Service) UpdateDocument(ctx context.Context, docID string, req *model.UpdateDocumentRequest) (*model.DocumentInstance, error) {
	d, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if req.CompanyKey != nil {
		d.CompanyKey = *req.CompanyKey
	}
	if req.PersonKey != nil {
		d.PersonKey = *req.PersonKey
	}
	if req.IssuedAt != nil {
		d.IssuedAt = req.IssuedAt
	}
	if req.PeriodKey != nil {
		d.PeriodKey = *req.PeriodKey
		d.NeedsPeriod = *req.PeriodKey == ""
	}
	if req.Status != nil {
		d.Status = *req.Status
	}
	d.UpdatedAt = s.clock().UTC()
	if err := s.docs.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ReplacePDF swaps the stored blob for a document, recomputing sha256 but
// preserving declared dates and hence validity (spec.md §4.1 "replace_pdf").
func (s *Service) ReplacePDF(ctx context.Context, docID string, content []byte) (*model.DocumentInstance, error) {
	d, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if _, err := pdfmeta.Sniff(content); err != nil {
		return nil, model.ErrInvalidMIME
	}
	if d.StoredPath != "" {
		_ = s.docs.DeleteBlob(ctx, d.StoredPath)
	}
	storedPath, err := s.docs.PutBlob(ctx, docID, "pdf", content)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(content)
	d.StoredPath = storedPath
	d.SHA256 = hex.EncodeToString(sum[:])
	d.UpdatedAt = s.clock().UTC()
	if err := s.docs.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeleteDocument(ctx context.Context, docID string) error {
	d, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if d.StoredPath != "" {
		_ = s.docs.DeleteBlob(ctx, d.StoredPath)
	}
	return s.docs.Delete(ctx, docID)
}

// SetOverride sets or clears validity_override (spec.md §3.1, scenario S5).
func (s *Service) SetOverride(ctx context.Context, docID string, req *model.SetOverrideRequest) (*model.DocumentInstance, error) {
	d, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if req.Clear {
		d.Override = nil
	} else {
		d.Override = &model.ValidityOverride{ValidFrom: req.ValidFrom, ValidTo: req.ValidTo, Reason: req.Reason}
	}
	d.UpdatedAt = s.clock().UTC()
	if err := s.docs.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DownloadPDF returns the stored bytes for a document's blob.
func (s *Service) DownloadPDF(ctx context.Context, docID string) ([]byte, error) {
	d, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.docs.GetBlob(ctx, d.StoredPath)
}

// ExpectedPeriods delegates to the Period Planner for a given type/subject.
func (s *Service) ExpectedPeriods(ctx context.Context, typeID string, monthsBack int) ([]period.Period, error) {
	t, err := s.types.GetByID(ctx, typeID)
	if err != nil {
		return nil, err
	}
	return period.ExpectedPeriods(t.PeriodKind, s.clock().UTC(), monthsBack), nil
}
