package spreadsheetportal

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/andreypavlenko/caesub/internal/portal/driver"
	"github.com/andreypavlenko/caesub/internal/portal/grid"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
)

// frameExtractor adapts a located grid frame to pagination.PageExtractor
// (spec.md §4.3.5): one table.hdr row per PendingRequirement, a next-page
// control lookup, and a page signature for the loop guard.
type frameExtractor struct {
	frame *rod.Page
}

func (f *frameExtractor) ExtractRows() ([]matchingmodel.PendingRequirement, error) {
	rows, err := f.frame.Elements("table.hdr tr.data")
	if err != nil {
		return nil, fmt.Errorf("spreadsheetportal: list grid rows: %w", err)
	}
	out := make([]matchingmodel.PendingRequirement, 0, len(rows))
	for _, row := range rows {
		tipo, _ := cellText(row, ".tipo_doc")
		elemento, _ := cellText(row, ".elemento")
		empresa, _ := cellText(row, ".empresa")
		item := matchingmodel.PendingRequirement{
			TipoDoc:  tipo,
			Elemento: elemento,
			Empresa:  empresa,
		}
		item.PendingItemKey = matchingmodel.ComputePendingItemKey(item.TipoDoc, item.Elemento, item.Empresa)
		out = append(out, item)
	}
	return out, nil
}

func cellText(row *rod.Element, selector string) (string, error) {
	cell, err := row.Element(selector)
	if err != nil {
		return "", nil // absent cell, not a hard failure
	}
	return cell.Text()
}

func (f *frameExtractor) HasNextPage() (bool, error) {
	has, el, err := f.frame.Has("a.next_page:not(.disabled)")
	if err != nil {
		return false, fmt.Errorf("spreadsheetportal: check next-page control: %w", err)
	}
	_ = el
	return has, nil
}

func (f *frameExtractor) ClickNextPage() error {
	el, err := f.frame.Element("a.next_page:not(.disabled)")
	if err != nil {
		return fmt.Errorf("spreadsheetportal: locate next-page control: %w", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (f *frameExtractor) PageSignature() (string, error) {
	info, err := f.frame.Info()
	if err != nil {
		return "", fmt.Errorf("spreadsheetportal: read frame info: %w", err)
	}
	rows, err := f.frame.Elements("table.hdr tr.data")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%d", info.URL, len(rows)), nil
}

// gridPage adapts the driver + grid frame to upload.Page (spec.md §4.3.6).
type gridPage struct {
	d *driver.Driver
}

func (g *gridPage) LocateByItemKey(pendingItemKey string) (bool, error) {
	frame, err := grid.FindGridFrame(g.d.Page())
	if err != nil {
		return false, err
	}
	rows, err := frame.Elements("table.hdr tr.data")
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		tipo, _ := cellText(row, ".tipo_doc")
		elemento, _ := cellText(row, ".elemento")
		empresa, _ := cellText(row, ".empresa")
		if matchingmodel.ComputePendingItemKey(tipo, elemento, empresa) == pendingItemKey {
			return true, nil
		}
	}
	return false, nil
}

func (g *gridPage) OpenUploadForm() error {
	el, err := g.d.Page().Element("a.upload_link")
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (g *gridPage) FillDateField(name string, value time.Time) error {
	el, err := g.d.Page().Element(fmt.Sprintf(`input[name=%q]`, name))
	if err != nil {
		return err
	}
	return el.Input(value.Format("02/01/2006"))
}

func (g *gridPage) AttachFile(localPath string) error {
	el, err := g.d.Page().Element(`input[type=file]`)
	if err != nil {
		return err
	}
	return el.SetFiles([]string{localPath})
}

func (g *gridPage) Submit() error {
	el, err := g.d.Page().Element(`input[type=submit], button[type=submit]`)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (g *gridPage) WaitConfirmation() (bool, error) {
	has, _, err := g.d.Page().Has(".confirmacion, .success")
	return has, err
}

func (g *gridPage) ItemStillPending(pendingItemKey string) (bool, error) {
	return g.LocateByItemKey(pendingItemKey)
}

func (g *gridPage) Screenshot() ([]byte, error) {
	return g.d.Screenshot()
}
