package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/andreypavlenko/caesub/internal/evidence"
	"github.com/andreypavlenko/caesub/internal/portal/connector"
	"github.com/andreypavlenko/caesub/internal/portal/upload"
	"github.com/andreypavlenko/caesub/internal/trace"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	matchingsvc "github.com/andreypavlenko/caesub/modules/matching/service"
	repomodel "github.com/andreypavlenko/caesub/modules/repository/model"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
	rulessvc "github.com/andreypavlenko/caesub/modules/rules/service"
	"github.com/andreypavlenko/caesub/modules/workflow/model"
	"github.com/google/uuid"
)

// ApplyDecisionPack implements spec.md §4.5.2: it derives a new plan from an
// existing one with the pack's overrides folded in, never mutating the
// original (spec.md §5, "Plan and Decision Pack writes are monotonic").
func (s *Service) ApplyDecisionPack(ctx context.Context, planID string, decisions []model.DecisionEntry) (*model.Plan, *model.DecisionPack, error) {
	original, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}

	pack := &model.DecisionPack{
		DecisionPackID: uuid.NewString(),
		PlanID:         planID,
		Decisions:      decisions,
		CreatedAt:      s.clock().UTC(),
	}
	if err := s.packRepo.Create(ctx, pack); err != nil {
		return nil, nil, err
	}

	derived := &model.Plan{
		PlanID:            uuid.NewString(),
		PlatformKey:       original.PlatformKey,
		CoordLabel:        original.CoordLabel,
		CompanyKey:        original.CompanyKey,
		PersonKey:         original.PersonKey,
		OnlyTarget:        original.OnlyTarget,
		Items:             make([]model.PlanItem, len(original.Items)),
		DerivedFromPlanID: original.PlanID,
		DecisionPackID:    pack.DecisionPackID,
		CreatedAt:         s.clock().UTC(),
	}
	copy(derived.Items, original.Items)

	for i := range derived.Items {
		item := &derived.Items[i]
		entry := pack.EntryFor(item.Pending.PendingItemKey)
		if entry == nil {
			continue
		}
		s.applyDecision(ctx, item, entry)
	}
	derived.Summary = model.Summarize(derived.Items)

	if err := s.planRepo.Create(ctx, derived); err != nil {
		return nil, nil, err
	}
	return derived, pack, nil
}

// applyDecision folds one human override into a plan item's outcome
// (spec.md §4.5.2's four action kinds).
func (s *Service) applyDecision(ctx context.Context, item *model.PlanItem, entry *model.DecisionEntry) {
	switch entry.Action {
	case model.ActionMarkAsMatch:
		item.Debug.Outcome = matchingmodel.Outcome{
			Decision:          matchingmodel.DecisionAutoUpload,
			PrimaryReasonCode: matchingmodel.ReasonMatchOK,
			Confidence:        1.0,
			LocalDocRef:       &matchingmodel.LocalDocRef{DocID: entry.ChosenLocalDocID},
			HumanHint:         entry.Reason,
		}
	case model.ActionForceSkip:
		item.Debug.Outcome = matchingmodel.Outcome{
			Decision:          matchingmodel.DecisionSkip,
			PrimaryReasonCode: matchingmodel.ReasonPolicyRejected,
			HumanHint:         entry.Reason,
		}
	case model.ActionRequestHuman:
		item.Debug.Outcome = matchingmodel.Outcome{
			Decision:          matchingmodel.DecisionReviewRequired,
			PrimaryReasonCode: matchingmodel.ReasonAmbiguousMatch,
			HumanHint:         entry.Reason,
		}
	case model.ActionApplyPreset:
		preset, err := s.presetRepo.GetByName(ctx, entry.Preset)
		if err != nil {
			return
		}
		item.Debug.Outcome = matchingmodel.Outcome{
			Decision:          matchingmodel.DecisionAutoUpload,
			PrimaryReasonCode: matchingmodel.ReasonMatchOK,
			Confidence:        1.0,
			LocalDocRef:       &matchingmodel.LocalDocRef{DocID: preset.LocalDocID, TypeID: preset.TypeID},
			HumanHint:         "applied preset " + preset.Name,
		}
	}
}

// Apply implements spec.md §4.5.3: the gated, rate-limited, run-scoped
// upload loop. Gating (dev mode, the real-uploader header, the hard cap,
// and every requested item being AUTO_UPLOAD) is checked before the
// browser is ever opened. devMode and hasUploaderHeader are resolved by
// the handler from the process environment and the request header
// respectively, so this package never reads either itself.
func (s *Service) Apply(ctx context.Context, req model.ApplyRequest, devMode, hasUploaderHeader bool) (*model.ApplyResult, error) {
	if s.idem != nil {
		var cached model.ApplyResult
		if found, err := s.idem.Get(ctx, idempotencyKey(req.ClientRequestID), &cached); err == nil && found {
			return &cached, nil
		}
	}

	if !devMode {
		return nil, model.ErrApplyNotDevMode
	}
	if !hasUploaderHeader {
		return nil, model.ErrApplyMissingHeader
	}

	maxUploads := req.MaxUploads
	if maxUploads <= 0 {
		maxUploads = s.policy.MaxUploadsHardCap
	}
	if maxUploads > s.policy.MaxUploadsHardCap {
		return nil, model.ErrApplyOverHardCap
	}
	stopOnFirstError := true
	if req.StopOnFirstError != nil {
		stopOnFirstError = *req.StopOnFirstError
	}
	rateLimit := s.policy.RateLimitDefaultSeconds
	if req.RateLimitSeconds != nil {
		rateLimit = *req.RateLimitSeconds
	}

	plan, err := s.planRepo.GetByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	targets, err := selectApplyItems(plan, req.Items)
	if err != nil {
		return nil, err
	}
	if len(targets) > maxUploads {
		targets = targets[:maxUploads]
	}

	var unlock func()
	if s.idem != nil {
		ok, release, err := s.idem.Lock(ctx, planLockKey(plan.PlanID))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("workflow: plan %s is already being applied", plan.PlanID)
		}
		unlock = release
		defer unlock()
	}

	result, err := s.runApply(ctx, plan, targets, stopOnFirstError, rateLimit)
	if err != nil {
		return nil, err
	}
	if s.idem != nil {
		_ = s.idem.Put(ctx, idempotencyKey(req.ClientRequestID), result)
	}
	return result, nil
}

func idempotencyKey(clientRequestID string) string {
	return "apply:" + clientRequestID
}

func planLockKey(planID string) string {
	return "apply-lock:" + planID
}

func selectApplyItems(plan *model.Plan, keys []string) ([]*model.PlanItem, error) {
	if len(keys) == 0 {
		var out []*model.PlanItem
		for i := range plan.Items {
			if plan.Items[i].Debug.Outcome.Decision == matchingmodel.DecisionAutoUpload {
				out = append(out, &plan.Items[i])
			}
		}
		return out, nil
	}
	out := make([]*model.PlanItem, 0, len(keys))
	for _, k := range keys {
		item := plan.ItemByKey(k)
		if item == nil {
			return nil, model.ErrApplyItemNotInPlan
		}
		if item.Debug.Outcome.Decision != matchingmodel.DecisionAutoUpload {
			return nil, model.ErrApplyItemNotAutoUpload
		}
		out = append(out, item)
	}
	return out, nil
}

// revalidate implements spec.md §4.5.3 step 1: recompute the decision for
// one item immediately before it is uploaded, using the current repository
// and history state rather than the plan's original snapshot (which may be
// stale if docs changed, rules changed, or another apply already consumed
// the fingerprint). Anything other than AUTO_UPLOAD aborts the item with
// reason "policy_rejected: <reason_code>" before the browser is touched.
func (s *Service) revalidate(
	ctx context.Context,
	plan *model.Plan,
	item *model.PlanItem,
	types []*repomodel.DocumentType,
	docs []*repomodel.DocumentInstance,
	rules []*rulesmodel.SubmissionRule,
) (rejected bool, reasonCode string) {
	req := BuildPlanRequest{
		PlatformKey: plan.PlatformKey,
		CoordLabel:  plan.CoordLabel,
		CompanyKey:  plan.CompanyKey,
		PersonKey:   plan.PersonKey,
	}
	debug := s.matchOne(ctx, item.Pending, req, types, docs, rules, s.clock().UTC())
	if debug.Outcome.Decision != matchingmodel.DecisionAutoUpload {
		return true, string(debug.Outcome.PrimaryReasonCode)
	}
	return false, ""
}

// runApply drives the run-scoped upload loop: one HeadfulRun per Apply
// call, one evidence manifest and trace log for that run, uploads
// serialized through runs/service's own run-level mutex via ExecuteAction.
func (s *Service) runApply(ctx context.Context, plan *model.Plan, items []*model.PlanItem, stopOnFirstError bool, rateLimit float64) (*model.ApplyResult, error) {
	startedAt := s.clock().UTC()
	run, err := s.runs.Start(ctx, plan.PlatformKey)
	if err != nil {
		return nil, fmt.Errorf("workflow: start run: %w", err)
	}

	runDir := filepath.Join(s.dataRoot, "runs", run.RunID)
	manifest := evidence.NewManifest(run.RunID, runDir, s.archiveCli)
	tracer := trace.NewWriter(filepath.Join(runDir, "trace.jsonl"))
	_ = tracer.Append(run.RunID, s.clock().UTC(), trace.EventRunStarted, nil)

	conn, err := s.connFactory(plan.PlatformKey, plan.CoordLabel)
	if err != nil {
		_, _ = s.runs.Fail(ctx, run.RunID, err.Error())
		return nil, fmt.Errorf("workflow: build connector: %w", err)
	}

	if err := conn.Login(); err != nil {
		_, _ = s.runs.Fail(ctx, run.RunID, err.Error())
		_ = conn.Close()
		return nil, fmt.Errorf("workflow: login: %w", err)
	}
	if _, err := s.runs.MarkBrowserStarted(ctx, run.RunID); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := s.runs.Authenticate(ctx, run.RunID); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.NavigateToPending(); err != nil {
		_, _ = s.runs.Fail(ctx, run.RunID, err.Error())
		_ = conn.Close()
		return nil, fmt.Errorf("workflow: navigate to pending: %w", err)
	}
	if _, err := s.runs.MarkReady(ctx, run.RunID); err != nil {
		_ = conn.Close()
		return nil, err
	}

	allRules, _ := s.rules.List(ctx)
	types, _, _ := s.repo.ListTypes(ctx, repomodel.ListTypesQuery{})
	docs, _ := s.repo.ListDocuments(ctx, repomodel.ListDocumentsQuery{CompanyKey: plan.CompanyKey, PersonKey: plan.PersonKey})
	enabledRules := matchingsvc.EnabledRulesOnly(allRules)

	result := &model.ApplyResult{PlanID: plan.PlanID, Summary: model.ApplySummary{RunID: run.RunID}}

	for i, item := range items {
		if i > 0 && rateLimit > 0 {
			time.Sleep(time.Duration(rateLimit * float64(time.Second)))
		}

		if rejected, reason := s.revalidate(ctx, plan, item, types, docs, enabledRules); rejected {
			result.Items = append(result.Items, model.ApplyItemResult{
				PendingItemKey: item.Pending.PendingItemKey,
				Outcome:        model.ItemOutcomeSkipped,
				ReasonCode:     "policy_rejected: " + reason,
			})
			result.Summary.Skipped++
			continue
		}

		itemResult := s.applyOneItem(ctx, run.RunID, plan, item, conn, allRules, manifest, tracer)
		result.Items = append(result.Items, itemResult)
		switch itemResult.Outcome {
		case model.ItemOutcomeSuccess:
			result.Summary.Success++
		case model.ItemOutcomeFailed:
			result.Summary.Failed++
			if stopOnFirstError {
				_ = manifest.Seal()
				_, _ = s.runs.Close(ctx, run.RunID, conn)
				s.recordMetrics(ctx, plan, result, startedAt)
				return result, nil
			}
		case model.ItemOutcomeSkipped:
			result.Summary.Skipped++
		}
	}

	_ = manifest.Seal()
	_ = tracer.Append(run.RunID, s.clock().UTC(), trace.EventRunFinished, nil)
	if _, err := s.runs.Close(ctx, run.RunID, conn); err != nil {
		return result, err
	}
	s.recordMetrics(ctx, plan, result, startedAt)
	return result, nil
}

// recordMetrics persists the run's RunMetrics artifact (spec.md §3.1) when
// a recorder was wired at construction; metrics are a reporting
// convenience, never load-bearing for apply's own outcome, so a recorder
// error is logged away rather than surfaced as an apply failure.
func (s *Service) recordMetrics(ctx context.Context, plan *model.Plan, result *model.ApplyResult, startedAt time.Time) {
	if s.metrics == nil {
		return
	}
	_ = s.metrics.Record(ctx, plan, result, startedAt, s.clock().UTC())
}

// applyOneItem executes spec.md §4.5.3 steps 3-5 for one item: record
// planned, run the upload through the run's single-action admission gate,
// seal before/after evidence, and record the terminal history outcome.
func (s *Service) applyOneItem(
	ctx context.Context,
	runID string,
	plan *model.Plan,
	item *model.PlanItem,
	conn connector.Connector,
	allRules []*rulesmodel.SubmissionRule,
	manifest *evidence.Manifest,
	tracer *trace.Writer,
) model.ApplyItemResult {
	key := item.Pending.PendingItemKey
	if item.Debug.Outcome.LocalDocRef == nil {
		return model.ApplyItemResult{PendingItemKey: key, Outcome: model.ItemOutcomeSkipped, ReasonCode: "no_local_doc_ref"}
	}
	docID := item.Debug.Outcome.LocalDocRef.DocID
	typeID := item.Debug.Outcome.LocalDocRef.TypeID

	doc, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return model.ApplyItemResult{PendingItemKey: key, Outcome: model.ItemOutcomeFailed, Error: err.Error()}
	}

	periodKey := item.Pending.DetectedPeriod
	fp := matchingmodel.Fingerprint(matchingmodel.FingerprintInput{
		PlatformKey: plan.PlatformKey,
		CompanyKey:  plan.CompanyKey,
		PersonKey:   plan.PersonKey,
		TypeID:      typeID,
		PeriodKey:   periodKey,
		TipoDoc:     item.Pending.TipoDoc,
		Elemento:    item.Pending.Elemento,
	})
	record, err := s.history.RecordPlanned(ctx, runID, fp, plan.PlatformKey, plan.CompanyKey, plan.PersonKey, typeID)
	if err != nil {
		return model.ApplyItemResult{PendingItemKey: key, Outcome: model.ItemOutcomeFailed, Error: err.Error()}
	}

	rule := rulessvc.Resolve(allRules, plan.PlatformKey, typeID, plan.CoordLabel)

	var uploadRes upload.Result
	_, actionErr := s.runs.ExecuteAction(ctx, runID, func(actionCtx context.Context) error {
		var innerErr error
		uploadRes, innerErr = conn.UploadOne(item.Pending, doc, rule)
		return innerErr
	})

	s.sealUploadEvidence(manifest, tracer, runID, key, uploadRes)

	if actionErr != nil {
		_ = s.history.MarkFailed(ctx, record, actionErr.Error())
		return model.ApplyItemResult{PendingItemKey: key, Outcome: model.ItemOutcomeFailed, RecordID: record.RecordID, Error: actionErr.Error()}
	}

	evidencePath := filepath.Join("runs", runID, "evidence_manifest.json")
	if err := s.history.MarkSubmitted(ctx, record, doc.DocID, doc.SHA256, evidencePath); err != nil {
		return model.ApplyItemResult{PendingItemKey: key, Outcome: model.ItemOutcomeFailed, RecordID: record.RecordID, Error: err.Error()}
	}
	return model.ApplyItemResult{PendingItemKey: key, Outcome: model.ItemOutcomeSuccess, DocID: doc.DocID, RecordID: record.RecordID}
}

// sealUploadEvidence persists the before/after screenshots and form
// snapshot upload.Run captured, and appends the matching trace events
// (spec.md §6.3-§6.4), regardless of whether the upload ultimately
// succeeded — a failed upload's evidence is exactly what an operator needs
// to diagnose it.
func (s *Service) sealUploadEvidence(manifest *evidence.Manifest, tracer *trace.Writer, runID, pendingItemKey string, res upload.Result) {
	var refs []string
	if len(res.ScreenshotBefore) > 0 {
		if art, err := manifest.WriteArtifact(evidence.KindScreenshot, fmt.Sprintf("%s_before.png", pendingItemKey), res.ScreenshotBefore); err == nil {
			refs = append(refs, art.RelativePath)
		}
	}
	if len(res.ScreenshotAfter) > 0 {
		if art, err := manifest.WriteArtifact(evidence.KindScreenshot, fmt.Sprintf("%s_after.png", pendingItemKey), res.ScreenshotAfter); err == nil {
			refs = append(refs, art.RelativePath)
		}
	}
	_ = tracer.Append(runID, s.clock().UTC(), trace.EventEvidenceCaptured, func(e *trace.Event) {
		e.StepID = pendingItemKey
		e.EvidenceRefs = refs
	})
}
