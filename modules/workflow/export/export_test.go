package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	"github.com/andreypavlenko/caesub/modules/workflow/model"
)

func TestAuditSheetWritesNonEmptyDocument(t *testing.T) {
	plan := &model.Plan{
		PlanID:      "plan-1",
		PlatformKey: "sprinter",
		CoordLabel:  "coord-a",
		Items: []model.PlanItem{
			{
				Pending: matchingmodel.PendingRequirement{
					PendingItemKey: "key-1",
					TipoDoc:        "seguro",
					Elemento:       "poliza",
					Empresa:        "acme",
				},
				Debug: matchingmodel.MatchingDebugReport{
					Outcome: matchingmodel.Outcome{
						Decision:          matchingmodel.DecisionAutoUpload,
						PrimaryReasonCode: matchingmodel.ReasonMatchOK,
						LocalDocRef:       &matchingmodel.LocalDocRef{DocID: "doc-1", TypeID: "type-1"},
					},
				},
			},
		},
		Summary:   model.Summary{Total: 1, AutoUpload: 1},
		CreatedAt: time.Now(),
	}
	pack := &model.DecisionPack{
		DecisionPackID: "pack-1",
		PlanID:         "plan-1",
		Decisions: []model.DecisionEntry{
			{ItemID: "key-1", Action: model.ActionMarkAsMatch, Reason: "confirmed by operator"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, AuditSheet(&buf, plan, pack))
	require.NotZero(t, buf.Len())
}

func TestAuditSheetWithoutDecisionPack(t *testing.T) {
	plan := &model.Plan{PlanID: "plan-2", Items: []model.PlanItem{}}

	var buf bytes.Buffer
	require.NoError(t, AuditSheet(&buf, plan, nil))
	require.NotZero(t, buf.Len())
}
