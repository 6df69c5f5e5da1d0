// Package overlay implements the overlay/blocker dismissal pipeline of
// spec.md §4.3.3: the priority-communications modal, the news/notices
// window, and generic DHTMLX blockers, each closed through a cascade of
// best-effort strategies.
package overlay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/andreypavlenko/caesub/internal/coreerr"
)

var (
	unreadCounterPattern  = regexp.MustCompile(`No le[ií]do:\s*(\d+)`)
	noticesTitlePattern   = regexp.MustCompile(`(?i)avisos|comunicados|noticias`)
	genericBlockerPattern = regexp.MustCompile(`(?i)avisos|comunicados|noticias|seguridad`)
)

// ScreenshotFunc captures a page screenshot for the per-iteration evidence
// spec.md §4.3.3 requires; the caller supplies it so this package has no
// evidence-layer dependency.
type ScreenshotFunc func(label string) error

// DismissAll runs the full cascade: priority communications, then
// news/notices, then generic DHTMLX blockers. The spreadsheet connector
// calls it once, before navigating to the pending-documents dashboard.
func DismissAll(page *rod.Page, shoot ScreenshotFunc) error {
	if err := dismissPriorityCommunications(page, shoot); err != nil {
		return err
	}
	dismissNewsNotices(page) // best-effort, never aborts the pipeline
	dismissGenericDHTMLX(page)
	return nil
}

// dismissPriorityCommunications handles the ComunicadosPrioritarios modal
// (spec.md §4.3.3 step 1): loop while the unread counter is > 0, clicking
// the first unread entry then "Marcar como leído" through a fallback
// cascade of selection strategies.
func dismissPriorityCommunications(page *rod.Page, shoot ScreenshotFunc) error {
	frame, ok := findFrameBySrc(page, "ComunicadosPrioritarios")
	if !ok {
		return nil // modal not present this run
	}

	iteration := 0
	for {
		n, err := readUnreadCount(frame)
		if err != nil {
			return fmt.Errorf("overlay: read unread counter: %w", err)
		}
		if n <= 0 {
			break
		}

		if err := clickFirstUnread(frame); err != nil {
			return dismissalFailure("could not select the first unread communication")
		}
		if err := clickMarkAsRead(page, frame); err != nil {
			return dismissalFailure("could not activate \"Marcar como leído\"")
		}

		if err := waitCounterDecreased(frame, n); err != nil {
			return dismissalFailure("unread counter did not strictly decrease after marking read")
		}

		iteration++
		if shoot != nil {
			_ = shoot(fmt.Sprintf("priority_comms_iter_%d", iteration))
		}
	}

	return closeDHXWindow(page, frame)
}

func dismissalFailure(detail string) error {
	return coreerr.New(coreerr.CodePreDHXBlockerNotDismissed, coreerr.StagePrecondition, coreerr.SeverityError,
		"DHX_BLOCKER_NOT_DISMISSED").WithDetails(map[string]string{"detail": detail})
}

func findFrameBySrc(page *rod.Page, srcSubstring string) (*rod.Page, bool) {
	els, err := page.ElementsX(fmt.Sprintf(`//iframe[contains(@src, %q)]`, srcSubstring))
	if err != nil || len(els) == 0 {
		return nil, false
	}
	frame, err := els[0].Frame()
	if err != nil {
		return nil, false
	}
	return frame, true
}

func readUnreadCount(frame *rod.Page) (int, error) {
	res, err := frame.Eval(`() => document.body.innerText`)
	if err != nil {
		return 0, err
	}
	m := unreadCounterPattern.FindStringSubmatch(res.Value.Str())
	if m == nil {
		return 0, nil
	}
	n, _ := strconv.Atoi(m[1])
	return n, nil
}

func clickFirstUnread(frame *rod.Page) error {
	el, err := frame.Element(".unread, .no-leido")
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// clickMarkAsRead searches for the "Marcar como leído" control through the
// fallback cascade of spec.md §4.3.3: page, then frame, then a role-based
// lookup, then an XPath walk to the nearest clickable ancestor.
func clickMarkAsRead(page, frame *rod.Page) error {
	label := "Marcar como leído"
	strategies := []func() error{
		func() error { return clickByText(page, label) },
		func() error { return clickByText(frame, label) },
		func() error { return clickByRole(frame, "button", label) },
		func() error { return clickByAncestorXPath(frame, label) },
	}
	var lastErr error
	for _, strategy := range strategies {
		if err := strategy(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

func clickByText(p *rod.Page, text string) error {
	el, err := p.ElementR("*", text)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func clickByRole(p *rod.Page, role, name string) error {
	el, err := p.ElementX(fmt.Sprintf(`//*[@role=%q and contains(., %q)]`, role, name))
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func clickByAncestorXPath(p *rod.Page, text string) error {
	el, err := p.ElementX(fmt.Sprintf(`//*[contains(text(), %q)]/ancestor-or-self::a[1] | //*[contains(text(), %q)]/ancestor-or-self::button[1]`, text, text))
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func waitCounterDecreased(frame *rod.Page, previous int) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, err := readUnreadCount(frame)
		if err != nil {
			return err
		}
		if n < previous {
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("overlay: unread counter did not decrease from %d", previous)
}

// closeDHXWindow closes the modal through the DHTMLX-first cascade of
// spec.md §4.3.3: window API, then close button, then Escape key.
func closeDHXWindow(page, frame *rod.Page) error {
	if res, err := page.Eval(`() => { if (window.dhxWins) { window.dhxWins.forEachWindow(w => w.close()); return true; } if (window.dhtmlXWindows) { window.dhtmlXWindows.forEachWindow(w => w.close()); return true; } return false; }`); err == nil && res.Value.Bool() {
		return nil
	}
	if err := clickByText(frame, "×"); err == nil {
		return nil
	}
	return page.Keyboard.Type(input.Escape)
}

// dismissNewsNotices closes the news/notices window identified by title
// regex (spec.md §4.3.3 step 2). Failures here are best-effort and never
// abort the pipeline.
func dismissNewsNotices(page *rod.Page) {
	info, err := page.Info()
	if err != nil || !noticesTitlePattern.MatchString(info.Title) {
		return
	}
	if el, err := page.ElementR("*", "no volver a mostrar"); err == nil {
		_ = el.Click(proto.InputMouseButtonLeft, 1)
	}
	_ = closeDHXWindow(page, page)
}

// dismissGenericDHTMLX closes any remaining DHTMLX window whose title
// matches the generic blocker pattern (spec.md §4.3.3 step 3), best-effort.
func dismissGenericDHTMLX(page *rod.Page) {
	info, err := page.Info()
	if err != nil || !genericBlockerPattern.MatchString(strings.ToLower(info.Title)) {
		return
	}
	_ = closeDHXWindow(page, page)
}
