// Package driver is the headful browser driver of spec.md §4.3.1, grounded
// on the session/storage-state management pattern of the rod-builder skill's
// session_manager.go: a persistent rod.Browser, per-run incognito pages,
// cookie-based storage state snapshot/restore, and a URL allow-list checked
// before every navigation.
package driver

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/andreypavlenko/caesub/internal/coreerr"
)

// StorageState is the persistent cookie/origin state for one
// (platform, tenant) pair, serialized to disk between runs so a login is
// only ever performed once (spec.md §4.3.1).
type StorageState struct {
	Cookies []*proto.NetworkCookieParam `json:"cookies"`
	SavedAt time.Time                   `json:"saved_at"`
}

// LoadStorageState reads a persisted storage-state file, returning a nil
// state (not an error) when the file does not exist yet — first login.
func LoadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("driver: read storage state: %w", err)
	}
	var s StorageState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("driver: parse storage state: %w", err)
	}
	return &s, nil
}

// SaveStorageState atomically persists the given cookies.
func SaveStorageState(path string, cookies []*proto.NetworkCookieParam) error {
	data, err := json.MarshalIndent(StorageState{Cookies: cookies, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("driver: marshal storage state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("driver: write storage state: %w", err)
	}
	return os.Rename(tmp, path)
}

// Driver wraps one HeadfulRun's browser: a single incognito page, an
// allow-listed set of hosts, and the storage-state file it was opened with.
// Exactly one goroutine is expected to drive a Driver at a time (spec.md §5:
// "each browser-bound run is effectively single-threaded internally").
type Driver struct {
	browser      *rod.Browser
	page         *rod.Page
	storagePath  string
	allowedHosts map[string]bool
	mu           sync.Mutex
}

// Options configures a new Driver.
type Options struct {
	Headful      bool
	StoragePath  string   // persisted cookie jar for this (platform, tenant)
	AllowedHosts []string // spec.md §4.3.1: navigation outside this list aborts
}

// Open launches (or connects to) a browser process and opens a single
// incognito page, restoring any persisted storage state.
func Open(opts Options) (*Driver, error) {
	l := launcher.New().Headless(!opts.Headful)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("driver: launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("driver: connect browser: %w", err)
	}

	page, err := browser.Incognito().Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("driver: open page: %w", err)
	}

	allowed := make(map[string]bool, len(opts.AllowedHosts))
	for _, h := range opts.AllowedHosts {
		allowed[strings.ToLower(h)] = true
	}

	d := &Driver{browser: browser, page: page, storagePath: opts.StoragePath, allowedHosts: allowed}

	if state, err := LoadStorageState(opts.StoragePath); err == nil && state != nil {
		if err := page.SetCookies(state.Cookies); err != nil {
			return nil, fmt.Errorf("driver: restore storage state: %w", err)
		}
	}

	return d, nil
}

// Page exposes the underlying rod.Page for connector-level DOM work.
func (d *Driver) Page() *rod.Page {
	return d.page
}

// Navigate checks targetURL against the run's allow-list, then navigates
// and waits for load. A disallowed host returns
// coreerr.CodeSecurityBlockedDomainEscape immediately, without navigating.
func (d *Driver) Navigate(targetURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := url.Parse(targetURL)
	if err != nil {
		return coreerr.New(coreerr.CodeSecurityBlockedDomainEscape, coreerr.StageSecurity, coreerr.SeverityCritical,
			"navigation target is not a valid URL").WithDetails(map[string]string{"url": targetURL})
	}
	if len(d.allowedHosts) > 0 && !d.allowedHosts[strings.ToLower(u.Hostname())] {
		return coreerr.New(coreerr.CodeSecurityBlockedDomainEscape, coreerr.StageSecurity, coreerr.SeverityCritical,
			fmt.Sprintf("navigation to host %q is outside the run's allow-list", u.Hostname())).
			WithDetails(map[string]string{"url": targetURL, "host": u.Hostname()})
	}

	if err := d.page.Navigate(targetURL); err != nil {
		return fmt.Errorf("driver: navigate %s: %w", targetURL, err)
	}
	return d.page.WaitLoad()
}

// SaveState persists the page's current cookies to the configured storage
// path, called on HeadfulRun close (spec.md §4.4: "storage state flushed").
func (d *Driver) SaveState() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cookies, err := d.page.Cookies([]string{})
	if err != nil {
		return fmt.Errorf("driver: read cookies: %w", err)
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Secure: c.Secure, HTTPOnly: c.HTTPOnly, SameSite: c.SameSite, Expires: c.Expires,
		})
	}
	return SaveStorageState(d.storagePath, params)
}

// Screenshot captures the current page as PNG bytes, used by the overlay
// dismissal pipeline and per-item upload evidence (spec.md §4.3.3, §4.3.6).
func (d *Driver) Screenshot() ([]byte, error) {
	return d.page.Screenshot(true, nil)
}

// Close saves storage state and tears down the page and browser.
func (d *Driver) Close() error {
	_ = d.SaveState()
	d.page.Close()
	return d.browser.Close()
}

// StateSignature computes a cheap screen-signature string (URL + title) used
// by the same-state loop guard (spec.md §5) and grid/frame revalidation
// (spec.md §4.3.4). It is not a cryptographic hash — just a change detector.
func (d *Driver) StateSignature() (string, error) {
	info, err := d.page.Info()
	if err != nil {
		return "", fmt.Errorf("driver: read page info: %w", err)
	}
	return info.URL + "|" + info.Title, nil
}
