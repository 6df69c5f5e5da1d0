// Package export renders a Plan and the DecisionPack applied to it into a
// human-readable .docx audit sheet (spec.md §4.5.2's "produces an
// operator-reviewable artifact" requirement), for the operators this Core
// never gives a browser UI to (spec.md §1 Non-goals: UI).
package export

import (
	"fmt"
	"io"

	"github.com/gomutex/godocx"

	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	"github.com/andreypavlenko/caesub/modules/workflow/model"
)

// AuditSheet writes the .docx audit sheet for pack applied against plan to
// w. One table row per pending item: the scraped requirement text, the
// matching engine's decision and reason code, any human override the pack
// carries for that item, and the local document chosen.
func AuditSheet(w io.Writer, plan *model.Plan, pack *model.DecisionPack) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("export: new document: %w", err)
	}

	doc.AddHeading(fmt.Sprintf("Decision Pack Audit — plan %s", plan.PlanID), 1)
	doc.AddParagraph(fmt.Sprintf("Platform: %s    Coordinator: %s    Generated items: %d",
		plan.PlatformKey, plan.CoordLabel, plan.Summary.Total))
	if pack != nil {
		doc.AddParagraph(fmt.Sprintf("Decision pack: %s", pack.DecisionPackID))
	}

	table := doc.AddTable()
	header := table.AddRow()
	for _, col := range []string{"Pending item", "Company", "Engine decision", "Reason", "Override", "Chosen document"} {
		header.AddCell().AddParagraph(col)
	}

	for _, item := range plan.Items {
		row := table.AddRow()
		row.AddCell().AddParagraph(pendingLabel(item.Pending))
		row.AddCell().AddParagraph(item.Pending.Empresa)
		row.AddCell().AddParagraph(string(item.Debug.Outcome.Decision))
		row.AddCell().AddParagraph(string(item.Debug.Outcome.PrimaryReasonCode))
		row.AddCell().AddParagraph(overrideLabel(pack, item.Pending.PendingItemKey))
		row.AddCell().AddParagraph(chosenDocLabel(item.Debug.Outcome))
	}

	return doc.SaveTo(w)
}

func pendingLabel(p matchingmodel.PendingRequirement) string {
	return fmt.Sprintf("%s / %s", p.TipoDoc, p.Elemento)
}

func chosenDocLabel(outcome matchingmodel.Outcome) string {
	if outcome.LocalDocRef == nil {
		return "—"
	}
	return outcome.LocalDocRef.DocID
}

func overrideLabel(pack *model.DecisionPack, itemID string) string {
	if pack == nil {
		return ""
	}
	entry := pack.EntryFor(itemID)
	if entry == nil {
		return ""
	}
	if entry.Reason != "" {
		return fmt.Sprintf("%s (%s)", entry.Action, entry.Reason)
	}
	return string(entry.Action)
}
