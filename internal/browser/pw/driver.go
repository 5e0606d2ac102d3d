// internal/browser/pw/driver.go
package pw

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// ErrNoDialog is returned by AcceptAlert when no dialog is open.
var ErrNoDialog = errors.New("no javascript dialog is open")

// detachedMarkers are Playwright messages for handles whose node left the document.
var detachedMarkers = []string{
	"element is not attached to the dom",
	"element is detached",
	"node is detached",
	"execution context was destroyed",
	"frame was detached",
}

func classify(subject string, err error) error {
	if err == nil || driver.IsTransient(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range detachedMarkers {
		if strings.Contains(msg, marker) {
			return driver.Stale(subject, err)
		}
	}
	return err
}

// selector renders a query in Playwright's engine=value selector syntax.
func selector(q driver.Query) string {
	if q.By == driver.ByXPath {
		return "xpath=" + q.Value
	}
	return "css=" + q.Value
}

// Driver is a driver.Driver over one Playwright page.
type Driver struct {
	kind    driver.Kind
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	logger  *zap.Logger

	mu      sync.Mutex
	frame   playwright.Frame
	dialog  playwright.Dialog
	handles map[playwright.Page]string

	quitOnce sync.Once
	quitErr  error
}

var _ driver.Driver = (*Driver)(nil)

func newDriver(kind driver.Kind, b playwright.Browser, bctx playwright.BrowserContext, page playwright.Page, downloadDir string, logger *zap.Logger) *Driver {
	d := &Driver{kind: kind, browser: b, bctx: bctx, page: page, logger: logger, handles: map[playwright.Page]string{}}

	// A registered handler keeps dialogs open until AcceptAlert.
	page.OnDialog(func(dlg playwright.Dialog) {
		d.mu.Lock()
		d.dialog = dlg
		d.mu.Unlock()
	})
	if downloadDir != "" {
		page.OnDownload(func(dl playwright.Download) {
			if err := os.MkdirAll(downloadDir, 0o755); err != nil {
				logger.Warn("Failed to create download directory.", zap.String("dir", downloadDir), zap.Error(err))
				return
			}
			target := filepath.Join(downloadDir, dl.SuggestedFilename())
			if err := dl.SaveAs(target); err != nil {
				logger.Warn("Failed to save download.", zap.String("path", target), zap.Error(err))
			}
		})
	}
	return d
}

func (d *Driver) scope() playwright.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frame != nil {
		return d.frame
	}
	return d.page.MainFrame()
}

func (d *Driver) setFrame(f playwright.Frame) {
	d.mu.Lock()
	d.frame = f
	d.mu.Unlock()
}

func (d *Driver) Kind() driver.Kind { return d.kind }

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.setFrame(nil)
	if _, err := d.page.Goto(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.setFrame(nil)
	_, err := d.page.Reload()
	return err
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.Title()
}

func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.bctx.ClearCookies()
}

// MaximizeWindow sizes the page viewport; Playwright does not drive the OS window.
func (d *Driver) MaximizeWindow(ctx context.Context, viewport driver.Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return nil
	}
	return d.page.SetViewportSize(viewport.Width, viewport.Height)
}

func (d *Driver) lookup(ctx context.Context, q driver.Query, frame playwright.Frame) ([]playwright.ElementHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Value == "" {
		return nil, fmt.Errorf("empty %s query", q.By)
	}
	handles, err := frame.QuerySelectorAll(selector(q))
	if err != nil {
		return nil, classify(q.String(), err)
	}
	return handles, nil
}

func (d *Driver) FindElement(ctx context.Context, q driver.Query) (driver.Element, error) {
	frame := d.scope()
	handles, err := d.lookup(ctx, q, frame)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, driver.NoSuchElement(q.String())
	}
	d.dispose(handles[1:]...)
	return &element{d: d, handle: handles[0], query: q, frame: frame}, nil
}

// dispose releases handles nothing holds on to. Handles of a closed page are
// already gone, so failures only get logged.
func (d *Driver) dispose(handles ...playwright.ElementHandle) {
	for _, h := range handles {
		if err := h.Dispose(); err != nil {
			d.logger.Debug("Failed to dispose element handle.", zap.Error(err))
		}
	}
}

func (d *Driver) FindElements(ctx context.Context, q driver.Query) ([]driver.Element, error) {
	frame := d.scope()
	handles, err := d.lookup(ctx, q, frame)
	if err != nil {
		return nil, err
	}
	els := make([]driver.Element, 0, len(handles))
	for i, h := range handles {
		els = append(els, &element{d: d, handle: h, query: q, frame: frame, index: i})
	}
	return els, nil
}

func (d *Driver) SwitchToFrame(ctx context.Context, frame driver.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el, ok := frame.(*element)
	if !ok || el.d != d {
		return fmt.Errorf("frame %s does not belong to this session", frame)
	}
	content, err := el.handle.ContentFrame()
	if err != nil {
		return classify(el.String(), err)
	}
	if content == nil {
		return fmt.Errorf("%s is not a frame", el)
	}
	d.setFrame(content)
	return nil
}

func (d *Driver) SwitchToDefault(context.Context) error {
	d.setFrame(nil)
	return nil
}

func (d *Driver) AlertText(context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialog == nil {
		return "", false, nil
	}
	return d.dialog.Message(), true, nil
}

func (d *Driver) AcceptAlert(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	dlg := d.dialog
	d.dialog = nil
	d.mu.Unlock()
	if dlg == nil {
		return ErrNoDialog
	}
	if err := dlg.Accept(); err != nil {
		return fmt.Errorf("accepting dialog: %w", err)
	}
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := d.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// KeyChord presses key while mod is held, against whatever has focus.
func (d *Driver) KeyChord(ctx context.Context, mod driver.Modifier, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.page.Keyboard().Press(chord(mod, key))
}

// chord renders Playwright's Modifier+Key notation.
func chord(mod driver.Modifier, key string) string {
	return string(mod) + "+" + key
}

func (d *Driver) PressKeys(ctx context.Context, keys ...driver.Key) error {
	kb := d.page.Keyboard()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := kb.Press(string(k)); err != nil {
			return fmt.Errorf("pressing %s: %w", k, err)
		}
	}
	return nil
}

// WindowHandles lists the open pages of the browser context. A page keeps its
// handle for as long as it is open.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.handlesFor(d.bctx.Pages()), nil
}

func (d *Driver) handlesFor(pages []playwright.Page) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	open := make(map[playwright.Page]string, len(pages))
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		id, ok := d.handles[p]
		if !ok {
			id = uuid.NewString()
		}
		open[p] = id
		ids = append(ids, id)
	}
	d.handles = open
	return ids
}

// Quit closes the context and then the browser. Later calls return the first result.
func (d *Driver) Quit(context.Context) error {
	d.quitOnce.Do(func() {
		if err := d.bctx.Close(); err != nil {
			d.logger.Debug("Failed to close browser context.", zap.Error(err))
		}
		if err := d.browser.Close(); err != nil {
			d.quitErr = fmt.Errorf("closing %s: %w", d.kind, err)
		}
	})
	return d.quitErr
}
