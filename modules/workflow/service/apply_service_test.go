package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/caesub/internal/portal/upload"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	repomodel "github.com/andreypavlenko/caesub/modules/repository/model"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
	"github.com/andreypavlenko/caesub/modules/workflow/model"
)

func trueVal() *bool { v := true; return &v }

// fullStubConnector is a connector.Connector test double exercising the
// full apply upload loop (spec.md §4.3.6) without a real browser:
// Login/NavigateToPending/Close are no-ops, UploadOne reports a
// confirmed, verified upload with placeholder before/after evidence.
type fullStubConnector struct {
	uploadCalled bool
	uploadErr    error
}

func (c *fullStubConnector) Login() error            { return nil }
func (c *fullStubConnector) NavigateToPending() error { return nil }
func (c *fullStubConnector) Close() error             { return nil }

func (c *fullStubConnector) ExtractPending(maxPages int) ([]matchingmodel.PendingRequirement, error) {
	return nil, nil
}

func (c *fullStubConnector) UploadOne(pending matchingmodel.PendingRequirement, doc *repomodel.DocumentInstance, rule *rulesmodel.SubmissionRule) (upload.Result, error) {
	c.uploadCalled = true
	if c.uploadErr != nil {
		return upload.Result{}, c.uploadErr
	}
	return upload.Result{ScreenshotBefore: []byte("before"), ScreenshotAfter: []byte("after")}, nil
}

func seedAutoUploadPlan(t *testing.T, svc *Service, docStore interface {
	Create(ctx context.Context, d *repomodel.DocumentInstance) error
}) *model.Plan {
	t.Helper()
	_, err := svc.repo.CreateType(context.Background(), &repomodel.CreateTypeRequest{
		TypeID:        "type-1",
		Name:          "Seguro",
		PeriodKind:    repomodel.PeriodKindNone,
		PlatformAlias: []string{"seguro"},
	})
	require.NoError(t, err)
	doc := &repomodel.DocumentInstance{DocID: "doc-1", TypeID: "type-1", Status: repomodel.StatusReviewed, StoredPath: "docs/doc-1.pdf", SHA256: "deadbeef"}
	require.NoError(t, docStore.Create(context.Background(), doc))

	plan := &model.Plan{
		PlanID:      "plan-1",
		PlatformKey: "sprinter",
		Items: []model.PlanItem{
			{
				Pending: matchingmodel.PendingRequirement{PendingItemKey: "key-1", TipoDoc: "seguro", Elemento: "poliza", Empresa: "acme"},
				Debug: matchingmodel.MatchingDebugReport{
					PendingItemKey: "key-1",
					Outcome: matchingmodel.Outcome{
						Decision:    matchingmodel.DecisionAutoUpload,
						LocalDocRef: &matchingmodel.LocalDocRef{DocID: "doc-1", TypeID: "type-1"},
					},
				},
			},
		},
	}
	plan.Summary = model.Summarize(plan.Items)
	require.NoError(t, svc.planRepo.Create(context.Background(), plan))
	return plan
}

func TestApplyRejectsOutsideDevMode(t *testing.T) {
	svc, _ := newTestServiceWithStores(t, &fullStubConnector{}, false)
	_, err := svc.Apply(context.Background(), model.ApplyRequest{PlanID: "plan-1"}, false, true)
	require.True(t, errors.Is(err, model.ErrApplyNotDevMode))
}

func TestApplyRejectsWithoutUploaderHeader(t *testing.T) {
	svc, _ := newTestServiceWithStores(t, &fullStubConnector{}, true)
	_, err := svc.Apply(context.Background(), model.ApplyRequest{PlanID: "plan-1"}, true, false)
	require.True(t, errors.Is(err, model.ErrApplyMissingHeader))
}

func TestApplyRejectsOverHardCap(t *testing.T) {
	svc, _ := newTestServiceWithStores(t, &fullStubConnector{}, true)
	_, err := svc.Apply(context.Background(), model.ApplyRequest{PlanID: "plan-1", MaxUploads: 999}, true, true)
	require.True(t, errors.Is(err, model.ErrApplyOverHardCap))
}

func TestApplyDrivesAnAutoUploadItemToSuccess(t *testing.T) {
	conn := &fullStubConnector{}
	svc, docStore := newTestServiceWithStores(t, conn, true)
	plan := seedAutoUploadPlan(t, svc, docStore)

	result, err := svc.Apply(context.Background(), model.ApplyRequest{
		PlanID:           plan.PlanID,
		StopOnFirstError: trueVal(),
	}, true, true)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, model.ItemOutcomeSuccess, result.Items[0].Outcome)
	require.Equal(t, 1, result.Summary.Success)
	require.NotEmpty(t, result.Summary.RunID)
}

func TestApplyRevalidatesAndSkipsWhenDecisionNoLongerHolds(t *testing.T) {
	conn := &fullStubConnector{}
	svc, docStore := newTestServiceWithStores(t, conn, true)
	plan := seedAutoUploadPlan(t, svc, docStore)

	// The document the plan pinned is deleted between plan sealing and
	// apply, so revalidate's recomputed Match can no longer find it.
	require.NoError(t, docStore.Delete(context.Background(), "doc-1"))

	result, err := svc.Apply(context.Background(), model.ApplyRequest{
		PlanID:           plan.PlanID,
		StopOnFirstError: trueVal(),
	}, true, true)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, model.ItemOutcomeSkipped, result.Items[0].Outcome)
	require.Contains(t, result.Items[0].ReasonCode, "policy_rejected:")
	require.Equal(t, 1, result.Summary.Skipped)
	require.Equal(t, 0, result.Summary.Success)
	require.False(t, conn.uploadCalled)
}

func TestApplyRejectsItemNotInPlan(t *testing.T) {
	conn := &fullStubConnector{}
	svc, docStore := newTestServiceWithStores(t, conn, true)
	plan := seedAutoUploadPlan(t, svc, docStore)

	_, err := svc.Apply(context.Background(), model.ApplyRequest{
		PlanID: plan.PlanID,
		Items:  []string{"does-not-exist"},
	}, true, true)
	require.True(t, errors.Is(err, model.ErrApplyItemNotInPlan))
}
