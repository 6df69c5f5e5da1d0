// Package spreadsheetportal implements the Connector for the
// spreadsheet-driven CAE portal family spec.md §4.3 specifies in protocol
// detail: nested-frame grid selection, the DHTMLX overlay cascade, bounded
// pagination, and the canonical hidden-input upload form.
package spreadsheetportal

import (
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/andreypavlenko/caesub/internal/portal/connector"
	"github.com/andreypavlenko/caesub/internal/portal/driver"
	"github.com/andreypavlenko/caesub/internal/portal/grid"
	"github.com/andreypavlenko/caesub/internal/portal/overlay"
	"github.com/andreypavlenko/caesub/internal/portal/pagination"
	"github.com/andreypavlenko/caesub/internal/portal/upload"
	matchingmodel "github.com/andreypavlenko/caesub/modules/matching/model"
	repomodel "github.com/andreypavlenko/caesub/modules/repository/model"
	rulesmodel "github.com/andreypavlenko/caesub/modules/rules/model"
)

// Config is the platform-specific, externally-sourced configuration this
// connector needs (read-only platforms.json per spec.md §6.5).
type Config struct {
	LoginURL          string
	DashboardURL      string
	AllowedHosts      []string
	StoragePath       string
	Headful           bool
	MaxPages          int
	LoginSelectors    LoginSelectors
	DashboardTileText string // e.g. "enviar pendiente" role-name match text
}

// LoginSelectors are the declarative form selectors for first-login
// (spec.md §4.3.1). Credentials themselves are supplied at call time, never
// read from disk or persisted to evidence.
type LoginSelectors struct {
	UsernameField string
	PasswordField string
	SubmitButton  string
}

// Credentials are held only in memory for the run's duration (spec.md §5).
type Credentials struct {
	Username string
	Password string
}

// Connector drives one spreadsheet-portal HeadfulRun.
type Connector struct {
	platformKey string
	cfg         Config
	creds       Credentials
	d           *driver.Driver
}

// New constructs the connector, satisfying connector.Constructor's shape
// when partially applied with creds via NewConstructor.
func New(platformKey string, cfg Config, creds Credentials) (*Connector, error) {
	d, err := driver.Open(driver.Options{
		Headful:      cfg.Headful,
		StoragePath:  cfg.StoragePath,
		AllowedHosts: cfg.AllowedHosts,
	})
	if err != nil {
		return nil, fmt.Errorf("spreadsheetportal: open driver: %w", err)
	}
	return &Connector{platformKey: platformKey, cfg: cfg, creds: creds, d: d}, nil
}

// NewConstructor closes over credentials so the resulting
// connector.Constructor matches the registry's signature (platformKey,
// config) -> Connector; config is expected to be a Config value.
func NewConstructor(creds Credentials) connector.Constructor {
	return func(platformKey string, config any) (connector.Connector, error) {
		cfg, ok := config.(Config)
		if !ok {
			return nil, fmt.Errorf("spreadsheetportal: config must be spreadsheetportal.Config")
		}
		return New(platformKey, cfg, creds)
	}
}

// Login performs the declarative form login of spec.md §4.3.1 when no
// storage state was restored, else verifies the existing session directly.
func (c *Connector) Login() error {
	if err := c.d.Navigate(c.cfg.LoginURL); err != nil {
		return fmt.Errorf("spreadsheetportal: navigate login: %w", err)
	}
	page := c.d.Page()

	authenticated, _, _ := page.Has(c.cfg.DashboardTileText)
	if authenticated {
		return nil // storage state already authenticated
	}

	user, err := page.Element(c.cfg.LoginSelectors.UsernameField)
	if err != nil {
		return fmt.Errorf("spreadsheetportal: locate username field: %w", err)
	}
	if err := user.Input(c.creds.Username); err != nil {
		return fmt.Errorf("spreadsheetportal: fill username: %w", err)
	}
	pass, err := page.Element(c.cfg.LoginSelectors.PasswordField)
	if err != nil {
		return fmt.Errorf("spreadsheetportal: locate password field: %w", err)
	}
	if err := pass.Input(c.creds.Password); err != nil {
		return fmt.Errorf("spreadsheetportal: fill password: %w", err)
	}
	submit, err := page.Element(c.cfg.LoginSelectors.SubmitButton)
	if err != nil {
		return fmt.Errorf("spreadsheetportal: locate submit button: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("spreadsheetportal: submit login: %w", err)
	}
	return page.WaitLoad()
}

// NavigateToPending implements the dismissal-then-navigation cascade of
// spec.md §4.3.3–§4.3.4.
func (c *Connector) NavigateToPending() error {
	page := c.d.Page()
	if err := overlay.DismissAll(page, func(string) error { return nil }); err != nil {
		return err
	}

	if err := c.d.Navigate(c.cfg.DashboardURL); err != nil {
		return fmt.Errorf("spreadsheetportal: navigate dashboard: %w", err)
	}

	const maxAttempts = 2
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tile, err := page.Element(`a.listado_link[href="javascript:Gestion(3);"]`)
		if err != nil {
			tile, err = page.ElementR("a", c.cfg.DashboardTileText)
		}
		if err != nil {
			lastErr = fmt.Errorf("spreadsheetportal: locate pending-grid tile (attempt %d): %w", attempt, err)
			continue
		}
		if err := tile.Click(proto.InputMouseButtonLeft, 1); err != nil {
			lastErr = fmt.Errorf("spreadsheetportal: click pending-grid tile: %w", err)
			continue
		}
		if _, err := grid.FindGridFrame(page); err == nil {
			return nil
		}
		lastErr = fmt.Errorf("spreadsheetportal: grid frame not found after attempt %d", attempt)
	}
	return lastErr
}

// ExtractPending runs the bounded pagination sweep of spec.md §4.3.5 over
// the grid frame located by NavigateToPending.
func (c *Connector) ExtractPending(maxPages int) ([]matchingmodel.PendingRequirement, error) {
	if maxPages <= 0 {
		maxPages = c.cfg.MaxPages
	}
	frame, err := grid.FindGridFrame(c.d.Page())
	if err != nil {
		return nil, err
	}
	if _, err := grid.WaitReady(frame, 5*time.Second); err != nil {
		return nil, err
	}
	result, err := pagination.Enumerate(&frameExtractor{frame: frame}, maxPages)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// UploadOne runs spec.md §4.3.6's single-item upload sequence, returning
// the captured before/after screenshots and form snapshot regardless of
// whether the sequence ultimately succeeded.
func (c *Connector) UploadOne(pending matchingmodel.PendingRequirement, doc *repomodel.DocumentInstance, rule *rulesmodel.SubmissionRule) (upload.Result, error) {
	if rule == nil {
		rule = &rulesmodel.SubmissionRule{}
	}
	page := &gridPage{d: c.d}
	return upload.Run(page, upload.Request{
		Pending:   pending,
		LocalPath: doc.StoredPath,
		Rule:      rule,
	})
}

// Close flushes storage state and tears down the browser.
func (c *Connector) Close() error {
	return c.d.Close()
}
