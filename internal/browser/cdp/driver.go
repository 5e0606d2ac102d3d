// internal/browser/cdp/driver.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	proto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// ErrNoDialog is returned by AcceptAlert when no JavaScript dialog is open.
var ErrNoDialog = errors.New("no javascript dialog is open")

const quitGracePeriod = 10 * time.Second

// Launcher starts Chrome sessions over the DevTools protocol.
type Launcher struct {
	logger *zap.Logger
}

var _ driver.Launcher = (*Launcher)(nil)

func NewLauncher(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{logger: logger.Named("cdp")}
}

// Launch starts (or attaches to) a browser. ctx bounds startup only; the
// browser keeps running after ctx is done and lives until Quit.
func (l *Launcher) Launch(ctx context.Context, kind driver.Kind, opts driver.LaunchOptions) (driver.Driver, error) {
	if kind != driver.Chrome {
		return nil, &driver.UnsupportedKindError{Kind: string(kind)}
	}

	d := &Driver{
		logger:   l.logger,
		headless: opts.Headless,
	}

	// The browser outlives the launch context, so only its values carry over.
	root := context.WithoutCancel(ctx)
	var allocCtx context.Context
	if opts.RemoteURL != "" {
		allocCtx, d.allocCancel = chromedp.NewRemoteAllocator(root, opts.RemoteURL)
	} else {
		profile, err := os.MkdirTemp("", "uiharness-chrome-")
		if err != nil {
			return nil, fmt.Errorf("creating chrome profile: %w", err)
		}
		d.profileDir = profile
		if err := WritePreferences(profile, opts); err != nil {
			d.release()
			return nil, err
		}
		allocCtx, d.allocCancel = chromedp.NewExecAllocator(root, AllocatorOptions(opts, profile)...)
	}

	sugar := l.logger.Sugar()
	d.ctx, d.cancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)
	d.listen()

	if err := d.start(ctx, opts); err != nil {
		d.release()
		return nil, err
	}
	l.logger.Debug("Chrome session started.", zap.Bool("headless", opts.Headless), zap.Bool("remote", opts.RemoteURL != ""))
	return d, nil
}

// Driver is a driver.Driver over one Chrome tab.
type Driver struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	profileDir  string
	headless    bool
	logger      *zap.Logger

	mu     sync.Mutex
	scope  *proto.Node
	dialog struct {
		open    bool
		message string
	}

	quitOnce sync.Once
	quitErr  error
}

var _ driver.Driver = (*Driver)(nil)

// start allocates the browser. The first Run on a context must not carry a
// deadline, so it runs on the browser context and ctx only races it.
func (d *Driver) start(ctx context.Context, opts driver.LaunchOptions) error {
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(d.ctx, d.setup(opts)...)
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("starting chrome: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("starting chrome: %w", ctx.Err())
	}
}

func (d *Driver) setup(opts driver.LaunchOptions) []chromedp.Action {
	var actions []chromedp.Action
	if opts.DownloadDir != "" {
		dir := opts.DownloadDir
		actions = append(actions, chromedp.ActionFunc(func(c context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating download directory: %w", err)
			}
			return browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
				WithDownloadPath(dir).
				WithEventsEnabled(true).
				Do(proto.WithExecutor(c, chromedp.FromContext(c).Browser))
		}))
	}
	return actions
}

func (d *Driver) listen() {
	chromedp.ListenTarget(d.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			d.mu.Lock()
			d.dialog.open, d.dialog.message = true, e.Message
			d.mu.Unlock()
		case *page.EventJavascriptDialogClosed:
			d.mu.Lock()
			d.dialog.open, d.dialog.message = false, ""
			d.mu.Unlock()
		}
	})
}

func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := actionContext(d.ctx, ctx)
	defer cancel()
	return callerErr(ctx, chromedp.Run(runCtx, actions...))
}

func (d *Driver) currentScope() *proto.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scope
}

func (d *Driver) setScope(n *proto.Node) {
	d.mu.Lock()
	d.scope = n
	d.mu.Unlock()
}

func (d *Driver) Kind() driver.Kind { return driver.Chrome }

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.setScope(nil)
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	d.setScope(nil)
	return d.run(ctx, chromedp.Reload())
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	return d.run(ctx, network.ClearBrowserCookies())
}

func (d *Driver) MaximizeWindow(ctx context.Context, viewport driver.Viewport) error {
	if d.headless {
		if viewport.Width <= 0 || viewport.Height <= 0 {
			return nil
		}
		return d.run(ctx, chromedp.EmulateViewport(int64(viewport.Width), int64(viewport.Height)))
	}
	return d.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		windowID, _, err := browser.GetWindowForTarget().Do(c)
		if err != nil {
			return fmt.Errorf("resolving browser window: %w", err)
		}
		return browser.SetWindowBounds(windowID, &browser.Bounds{WindowState: browser.WindowStateMaximized}).Do(c)
	}))
}

func (d *Driver) lookup(ctx context.Context, q driver.Query, scope *proto.Node) ([]*proto.Node, error) {
	if q.Value == "" {
		return nil, fmt.Errorf("empty %s query", q.By)
	}
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	if q.By == driver.ByXPath {
		opts = append(opts, chromedp.BySearch)
	} else {
		opts = append(opts, chromedp.ByQueryAll)
	}
	if scope != nil {
		opts = append(opts, chromedp.FromNode(scope))
	}

	var nodes []*proto.Node
	if err := d.run(ctx, chromedp.Nodes(q.Value, &nodes, opts...)); err != nil {
		return nil, classify(q.String(), err)
	}
	return nodes, nil
}

func (d *Driver) FindElement(ctx context.Context, q driver.Query) (driver.Element, error) {
	scope := d.currentScope()
	nodes, err := d.lookup(ctx, q, scope)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, driver.NoSuchElement(q.String())
	}
	return &element{d: d, node: nodes[0], query: q, scope: scope}, nil
}

func (d *Driver) FindElements(ctx context.Context, q driver.Query) ([]driver.Element, error) {
	scope := d.currentScope()
	nodes, err := d.lookup(ctx, q, scope)
	if err != nil {
		return nil, err
	}
	els := make([]driver.Element, 0, len(nodes))
	for i, n := range nodes {
		els = append(els, &element{d: d, node: n, query: q, scope: scope, index: i})
	}
	return els, nil
}

func (d *Driver) SwitchToFrame(ctx context.Context, frame driver.Element) error {
	el, ok := frame.(*element)
	if !ok || el.d != d {
		return fmt.Errorf("frame %s does not belong to this session", frame)
	}
	name := strings.ToUpper(el.node.NodeName)
	if name != "IFRAME" && name != "FRAME" {
		return fmt.Errorf("%s is a %s, not a frame", el, el.node.NodeName)
	}
	// The node must still be attached to the document.
	err := d.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, err := dom.DescribeNode().WithNodeID(el.node.NodeID).Do(c)
		return err
	}))
	if err != nil {
		return classify(el.String(), err)
	}
	d.setScope(el.node)
	return nil
}

func (d *Driver) SwitchToDefault(context.Context) error {
	d.setScope(nil)
	return nil
}

func (d *Driver) AlertText(context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialog.message, d.dialog.open, nil
}

func (d *Driver) AcceptAlert(ctx context.Context) error {
	if _, open, _ := d.AlertText(ctx); !open {
		return ErrNoDialog
	}
	if err := d.run(ctx, page.HandleJavaScriptDialog(true)); err != nil {
		return fmt.Errorf("accepting dialog: %w", err)
	}
	d.mu.Lock()
	d.dialog.open, d.dialog.message = false, ""
	d.mu.Unlock()
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

var modifiers = map[driver.Modifier]input.Modifier{
	driver.ModControl: input.ModifierCtrl,
	driver.ModShift:   input.ModifierShift,
	driver.ModAlt:     input.ModifierAlt,
	driver.ModMeta:    input.ModifierMeta,
}

var keys = map[driver.Key]string{
	driver.KeyTab:    kb.Tab,
	driver.KeyEscape: kb.Escape,
	driver.KeyEnter:  kb.Enter,
}

// keySequence maps named keys to the runes chromedp dispatches for them.
func keySequence(names ...driver.Key) (string, error) {
	var b strings.Builder
	for _, k := range names {
		r, ok := keys[k]
		if !ok {
			return "", fmt.Errorf("unsupported key %q", k)
		}
		b.WriteString(r)
	}
	return b.String(), nil
}

// KeyChord presses key while mod is held, against whatever has focus.
func (d *Driver) KeyChord(ctx context.Context, mod driver.Modifier, key string) error {
	m, ok := modifiers[mod]
	if !ok {
		return fmt.Errorf("unsupported modifier %q", mod)
	}
	return d.run(ctx, chromedp.KeyEvent(key, chromedp.KeyModifiers(m)))
}

func (d *Driver) PressKeys(ctx context.Context, names ...driver.Key) error {
	seq, err := keySequence(names...)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.KeyEvent(seq))
}

// WindowHandles lists the page targets of the browser.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	runCtx, cancel := actionContext(d.ctx, ctx)
	defer cancel()
	targets, err := chromedp.Targets(runCtx)
	if err = callerErr(ctx, err); err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	var handles []string
	for _, t := range targets {
		if t.Type == "page" {
			handles = append(handles, string(t.TargetID))
		}
	}
	return handles, nil
}

// Quit closes the browser gracefully, falling back to killing it when ctx
// ends first. Later calls return the first result.
func (d *Driver) Quit(ctx context.Context) error {
	d.quitOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(d.ctx) }()

		grace, cancel := context.WithTimeout(ctx, quitGracePeriod)
		defer cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				d.quitErr = fmt.Errorf("closing chrome: %w", err)
			}
		case <-grace.Done():
			d.logger.Warn("Timed out closing chrome, killing it.", zap.Error(grace.Err()))
			d.quitErr = fmt.Errorf("closing chrome: %w", grace.Err())
		}
		d.release()
	})
	return d.quitErr
}

func (d *Driver) release() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	if d.profileDir != "" {
		if err := os.RemoveAll(d.profileDir); err != nil {
			d.logger.Debug("Failed to remove chrome profile.", zap.String("dir", d.profileDir), zap.Error(err))
		}
	}
}
