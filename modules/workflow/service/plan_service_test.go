package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/caesub/internal/portal/connector"
	"github.com/andreypavlenko/caesub/internal/portal/connector/faketestportal"
	historysvc "github.com/andreypavlenko/caesub/modules/history/service"
	learningsvc "github.com/andreypavlenko/caesub/modules/learning/service"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	reposvc "github.com/andreypavlenko/caesub/modules/repository/service"
	rulessvc "github.com/andreypavlenko/caesub/modules/rules/service"
	runssvc "github.com/andreypavlenko/caesub/modules/runs/service"

	historyrepo "github.com/andreypavlenko/caesub/modules/history/repository"
	learningrepo "github.com/andreypavlenko/caesub/modules/learning/repository"
	docrepo "github.com/andreypavlenko/caesub/modules/repository/repository"
	rulesrepo "github.com/andreypavlenko/caesub/modules/rules/repository"
	runsrepo "github.com/andreypavlenko/caesub/modules/runs/repository"
	workflowrepo "github.com/andreypavlenko/caesub/modules/workflow/repository"
)

func newTestService(t *testing.T, conn connector.Connector) *Service {
	t.Helper()
	svc, _ := newTestServiceWithStores(t, conn, true)
	return svc
}

func newTestServiceWithStores(t *testing.T, conn connector.Connector, devMode bool) (*Service, *docrepo.DocumentStore) {
	t.Helper()
	root := t.TempDir()
	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	docStore := docrepo.NewDocumentStore(root, nil)
	repoSvc := reposvc.NewService(docrepo.NewTypeStore(root), docStore, clock)
	rulesSvc := rulessvc.NewService(rulesrepo.NewRuleStore(root), clock)
	learningSvc := learningsvc.NewService(learningrepo.NewHintStore(root), clock)
	historySvc := historysvc.NewService(historyrepo.NewHistoryStore(root), clock)
	runsSvc := runssvc.NewService(runsrepo.NewRunStore(root), clock)

	planRepo := workflowrepo.NewPlanStore(root)
	packRepo := workflowrepo.NewDecisionPackStore(root)
	presetRepo := workflowrepo.NewPresetStore(root)

	connFactory := func(platformKey, coordLabel string) (connector.Connector, error) {
		return conn, nil
	}

	svc := NewService(
		repoSvc, rulesSvc, learningSvc, historySvc, runsSvc,
		planRepo, packRepo, presetRepo,
		connFactory, nil, Policy{MaxUploadsHardCap: 2, RateLimitDefaultSeconds: 0, DevMode: devMode},
		clock, root, nil, nil,
	)
	return svc, docStore
}

func TestBuildPlanSealsAnImmutablePlanFromScrapedPendings(t *testing.T) {
	conn := faketestportal.New([]matchingmodel.PendingRequirement{
		{TipoDoc: "seguro de responsabilidad civil", Elemento: "poliza", Empresa: "acme", PlatformKey: "sprinter"},
	})
	svc := newTestService(t, conn)

	plan, err := svc.BuildPlan(context.Background(), BuildPlanRequest{PlatformKey: "sprinter", Limit: 10, MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	require.Equal(t, 1, plan.Summary.Total)

	fetched, err := svc.PlanByID(context.Background(), plan.PlanID)
	require.NoError(t, err)
	require.Equal(t, plan.PlanID, fetched.PlanID)

	plans, err := svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
}

func TestBuildPlanRespectsLimit(t *testing.T) {
	conn := faketestportal.New([]matchingmodel.PendingRequirement{
		{TipoDoc: "a", Elemento: "b", Empresa: "c", PlatformKey: "sprinter"},
		{TipoDoc: "d", Elemento: "e", Empresa: "f", PlatformKey: "sprinter"},
	})
	svc := newTestService(t, conn)

	plan, err := svc.BuildPlan(context.Background(), BuildPlanRequest{PlatformKey: "sprinter", Limit: 1, MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
}

func TestExportAuditSheetRendersSealedPlan(t *testing.T) {
	conn := faketestportal.New([]matchingmodel.PendingRequirement{
		{TipoDoc: "seguro", Elemento: "poliza", Empresa: "acme", PlatformKey: "sprinter"},
	})
	svc := newTestService(t, conn)

	plan, err := svc.BuildPlan(context.Background(), BuildPlanRequest{PlatformKey: "sprinter", MaxPages: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportAuditSheet(context.Background(), &buf, plan.PlanID, ""))
	require.NotZero(t, buf.Len())
}

func TestDevModeReflectsPolicy(t *testing.T) {
	svc := newTestService(t, faketestportal.New(nil))
	require.True(t, svc.DevMode())
}
