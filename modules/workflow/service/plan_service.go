// Package service implements the Policy + Plan + Apply workflow of
// spec.md §4.5: read-only plan construction, human Decision Packs layered
// on top, and the gated, idempotent Apply that actually drives uploads.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/andreypavlenko/caesub/internal/platform/archive"
	"github.com/andreypavlenko/caesub/internal/portal/connector"
	historysvc "github.com/andreypavlenko/caesub/modules/history/service"
	learningmodel "github.com/andreypavlenko/caesub/modules/learning/model"
	learningsvc "github.com/andreypavlenko/caesub/modules/learning/service"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	matchingsvc "github.com/andreypavlenko/caesub/modules/matching/service"
	repomodel "github.com/andreypavlenko/caesub/modules/repository/model"
	reposvc "github.com/andreypavlenko/caesub/modules/repository/service"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
	rulessvc "github.com/andreypavlenko/caesub/modules/rules/service"
	runssvc "github.com/andreypavlenko/caesub/modules/runs/service"
	"github.com/andreypavlenko/caesub/modules/workflow/export"
	"github.com/andreypavlenko/caesub/modules/workflow/model"
	"github.com/andreypavlenko/caesub/modules/workflow/ports"
	"github.com/google/uuid"
)

// Policy bundles the apply-gating knobs of spec.md §4.5.3.
type Policy struct {
	MaxUploadsHardCap       int
	RateLimitDefaultSeconds float64
	DevMode                 bool // process environment explicitly set to development/operator mode
}

// ConnectorFactory builds a ready-to-drive Connector for one platform. The
// Core never parses platforms.json itself (spec.md §1, §6.5 are external
// collaborator concerns); the factory closure supplied at construction is
// where that lookup happens.
type ConnectorFactory func(platformKey, coordLabel string) (connector.Connector, error)

// IdempotencyStore is the seam Apply uses for spec.md §5's client-request-id
// law (satisfied by internal/platform/idempotency).
type IdempotencyStore interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	Lock(ctx context.Context, key string) (bool, func(), error)
}

// MetricsRecorder is the seam into modules/metrics/service.Service.Record,
// kept narrow so workflow never imports the metrics module directly (it
// would close an import cycle through workflow/model).
type MetricsRecorder interface {
	Record(ctx context.Context, plan *model.Plan, result *model.ApplyResult, startedAt, finishedAt time.Time) error
}

type Service struct {
	repo        *reposvc.Service
	rules       *rulessvc.Service
	learning    *learningsvc.Service
	history     *historysvc.Service
	runs        *runssvc.Service
	planRepo    ports.PlanRepository
	packRepo    ports.DecisionPackRepository
	presetRepo  ports.PresetRepository
	connFactory ConnectorFactory
	idem        IdempotencyStore
	policy      Policy
	clock       func() time.Time
	dataRoot    string
	archiveCli  *archive.Client
	metrics     MetricsRecorder
}

func NewService(
	repo *reposvc.Service,
	rules *rulessvc.Service,
	learning *learningsvc.Service,
	history *historysvc.Service,
	runs *runssvc.Service,
	planRepo ports.PlanRepository,
	packRepo ports.DecisionPackRepository,
	presetRepo ports.PresetRepository,
	connFactory ConnectorFactory,
	idem IdempotencyStore,
	policy Policy,
	clock func() time.Time,
	dataRoot string,
	archiveCli *archive.Client,
	metrics MetricsRecorder,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo: repo, rules: rules, learning: learning, history: history, runs: runs,
		planRepo: planRepo, packRepo: packRepo, presetRepo: presetRepo,
		connFactory: connFactory, idem: idem, policy: policy, clock: clock,
		dataRoot: dataRoot, archiveCli: archiveCli, metrics: metrics,
	}
}

// BuildPlanRequest is the input to both plan/build_readonly and
// plan/build_auto_upload_plan (spec.md §6.1) -- the two endpoints differ
// only in caller intent, not in engine behavior: both run the identical
// read-only scrape + match + decide pipeline.
type BuildPlanRequest struct {
	PlatformKey string
	CoordLabel  string
	CompanyKey  string
	PersonKey   string
	OnlyTarget  bool
	Limit       int
	MaxPages    int
}

// BuildPlan runs spec.md §4.5.1 end to end: scrape the pending grid via a
// fresh Connector, run Matching + the policy decision for each item, and
// seal the result as an immutable Plan. Nothing outside the Connector's own
// browser session is ever mutated -- no history, hint, or document write
// happens here.
func (s *Service) BuildPlan(ctx context.Context, req BuildPlanRequest) (*model.Plan, error) {
	conn, err := s.connFactory(req.PlatformKey, req.CoordLabel)
	if err != nil {
		return nil, fmt.Errorf("workflow: build connector: %w", err)
	}
	defer conn.Close()

	if err := conn.Login(); err != nil {
		return nil, fmt.Errorf("workflow: login: %w", err)
	}
	if err := conn.NavigateToPending(); err != nil {
		return nil, fmt.Errorf("workflow: navigate to pending: %w", err)
	}
	pendings, err := conn.ExtractPending(req.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("workflow: extract pending: %w", err)
	}
	if req.Limit > 0 && req.Limit < len(pendings) {
		pendings = pendings[:req.Limit]
	}

	types, _, err := s.repo.ListTypes(ctx, repomodel.ListTypesQuery{})
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListDocuments(ctx, repomodel.ListDocumentsQuery{CompanyKey: req.CompanyKey, PersonKey: req.PersonKey})
	if err != nil {
		return nil, err
	}
	allRules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	enabledRules := matchingsvc.EnabledRulesOnly(allRules)
	today := s.clock().UTC()

	items := make([]model.PlanItem, 0, len(pendings))
	for _, pending := range pendings {
		pending.PlatformKey = req.PlatformKey
		if pending.CoordLabel == "" {
			pending.CoordLabel = req.CoordLabel
		}
		debug := s.matchOne(ctx, pending, req, types, docs, enabledRules, today)
		items = append(items, model.PlanItem{Pending: pending, Debug: debug})
	}

	plan := &model.Plan{
		PlanID:      uuid.NewString(),
		PlatformKey: req.PlatformKey,
		CoordLabel:  req.CoordLabel,
		CompanyKey:  req.CompanyKey,
		PersonKey:   req.PersonKey,
		OnlyTarget:  req.OnlyTarget,
		Items:       items,
		Summary:     model.Summarize(items),
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// PlanByID fetches a sealed plan.
func (s *Service) PlanByID(ctx context.Context, planID string) (*model.Plan, error) {
	return s.planRepo.GetByID(ctx, planID)
}

// ListPlans lists every sealed plan.
func (s *Service) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	return s.planRepo.List(ctx)
}

// ExportAuditSheet renders plan (and, when decisionPackID is set, the
// override pack applied to it) as a .docx audit sheet for an operator to
// review outside this Core's UI-less REST surface (spec.md §4.5.2).
func (s *Service) ExportAuditSheet(ctx context.Context, w io.Writer, planID, decisionPackID string) error {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return err
	}
	var pack *model.DecisionPack
	if decisionPackID != "" {
		pack, err = s.packRepo.GetByID(ctx, decisionPackID)
		if err != nil {
			return err
		}
	}
	return export.AuditSheet(w, plan, pack)
}

// DevMode reports whether the process is running in development/operator
// mode, the first of Apply's spec.md §4.5.3 gates.
func (s *Service) DevMode() bool {
	return s.policy.DevMode
}

// matchOne runs the per-item pipeline of spec.md §4.2 step 1 through step
// 9: pre-resolve type+period for fingerprinting and dedupe (step 7 is
// checked first by Match itself), consult learning hints (step 6), resolve
// the applicable rule (step 5, attached to the debug report via the rule's
// document_type_id -- the engine itself is rule-agnostic beyond that), and
// hand everything to the pure Matching Engine.
func (s *Service) matchOne(
	ctx context.Context,
	pending matchingmodel.PendingRequirement,
	req BuildPlanRequest,
	types []*repomodel.DocumentType,
	docs []*repomodel.DocumentInstance,
	rules []*rulesmodel.SubmissionRule,
	today time.Time,
) matchingmodel.MatchingDebugReport {
	typeID, periodKey := matchingsvc.ResolveTypeAndPeriod(pending, types)

	fp := matchingmodel.Fingerprint(matchingmodel.FingerprintInput{
		PlatformKey: pending.PlatformKey,
		CompanyKey:  req.CompanyKey,
		PersonKey:   req.PersonKey,
		TypeID:      typeID,
		PeriodKey:   periodKey,
		TipoDoc:     pending.TipoDoc,
		Elemento:    pending.Elemento,
	})

	dedupe := matchingsvc.DedupeNone
	if outcome, err := s.history.CheckDedupe(ctx, fp); err == nil {
		switch outcome {
		case historysvc.DedupeAlreadySubmitted:
			dedupe = matchingsvc.DedupeAlreadySubmitted
		case historysvc.DedupeAlreadyPlanned:
			dedupe = matchingsvc.DedupeAlreadyPlanned
		}
	}

	hintConditions := learningmodel.Conditions{
		SubjectKey:                req.CompanyKey,
		PersonKey:                 req.PersonKey,
		PeriodKey:                 periodKey,
		PortalTypeLabelNormalized: pending.Normalize().NormalizedText,
	}
	hints, _ := s.learning.Resolve(ctx, fp, hintConditions)

	return matchingsvc.Match(matchingsvc.Input{
		Pending: pending,
		Scope: matchingsvc.ScopeFilter{
			CompanyKey: req.CompanyKey,
			PersonKey:  req.PersonKey,
		},
		Types:       types,
		Docs:        docs,
		Rules:       rules,
		Hints:       hints,
		Fingerprint: fp,
		Dedupe:      dedupe,
		Today:       today,
	})
}
