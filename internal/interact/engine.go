// internal/interact/engine.go
package interact

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
	"github.com/xkilldash9x/uiharness/internal/downloads"
	"github.com/xkilldash9x/uiharness/internal/session"
	"github.com/xkilldash9x/uiharness/internal/wait"
)

// Recorder receives fallback outcomes ("recovered" or "failed") per operation.
type Recorder interface {
	FallbackUsed(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) FallbackUsed(string, string) {}

// Engine runs UI primitives against the session owned by one worker. The
// session is looked up on every call, so an engine outlives session restarts.
type Engine struct {
	sc        *session.Context
	logger    *zap.Logger
	observers []func(Attempt)
	recorder  Recorder
	downloads *downloads.Poller
}

type Option func(*Engine)

// WithAttemptObserver is called with every strategy attempt, in order.
func WithAttemptObserver(fn func(Attempt)) Option {
	return func(e *Engine) { e.observers = append(e.observers, fn) }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithDownloadPoller replaces the poller used for file presence checks.
func WithDownloadPoller(p *downloads.Poller) Option {
	return func(e *Engine) { e.downloads = p }
}

func New(sc *session.Context, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		sc:       sc,
		logger:   logger.Named("interact").With(zap.String("worker", string(sc.Worker()))),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.downloads == nil {
		e.downloads = downloads.NewPoller(logger)
	}
	return e
}

func (e *Engine) observe(a Attempt) {
	for _, fn := range e.observers {
		fn(a)
	}
}

func (e *Engine) current() (driver.Driver, wait.Pair, error) {
	s, ok := e.sc.Session()
	if !ok {
		return nil, wait.Pair{}, fmt.Errorf("worker %q: %w", e.sc.Worker(), session.ErrNoSession)
	}
	waits, ok := e.sc.Waits()
	if !ok {
		return nil, wait.Pair{}, fmt.Errorf("worker %q: %w", e.sc.Worker(), session.ErrNoSession)
	}
	return s.Driver, waits, nil
}

// Click waits for the target to become clickable and clicks it, falling back to
// a scripted click when the native click fails. A wait timeout is final.
func (e *Engine) Click(ctx context.Context, t Target) error {
	return e.click(ctx, "click", t)
}

// ClickByQuery resolves q afresh and clicks it with fallback.
func (e *Engine) ClickByQuery(ctx context.Context, q driver.Query) error {
	return e.click(ctx, "click", ByQuery(q))
}

func (e *Engine) click(ctx context.Context, op string, t Target) error {
	d, waits, err := e.current()
	if err != nil {
		return err
	}
	el, err := t.resolve(ctx, d)
	if err != nil {
		return e.scriptedAfterResolveFailure(ctx, op, d, t, err)
	}
	e.logger.Debug("Waiting for element to be clickable.", zap.Stringer("target", t))
	if err := waits.Bounded.Until(ctx, wait.Clickable(el)); err != nil {
		return fmt.Errorf("%s %s: %w", op, t, err)
	}
	return e.clickWithFallback(ctx, op, d, t, el)
}

// clickWithFallback runs the native then scripted click without waiting again.
func (e *Engine) clickWithFallback(ctx context.Context, op string, d driver.Driver, t Target, el driver.Element) error {
	c := chain{op: op, target: t.String(), logger: e.logger, observe: e.observe}
	errs, ok := c.run(ctx,
		Strategy{Name: StrategyNative, Do: el.Click},
		Strategy{Name: StrategyScripted, Do: func(ctx context.Context) error {
			fresh, err := t.refresh(ctx, d, el)
			if err != nil {
				return err
			}
			return fresh.ScriptClick(ctx)
		}},
	)
	return e.outcome(op, t, errs, ok)
}

// scriptedAfterResolveFailure handles a query that could not be resolved for
// the native click: it looks the query up once more and clicks by script.
func (e *Engine) scriptedAfterResolveFailure(ctx context.Context, op string, d driver.Driver, t Target, resolveErr error) error {
	e.observe(Attempt{Op: op, Strategy: StrategyNative, Err: resolveErr})
	e.logger.Warn("Resolving target failed, retrying with scripted click.", zap.Stringer("target", t), zap.Error(resolveErr))

	err := func() error {
		fresh, err := t.refresh(ctx, d, nil)
		if err != nil {
			return err
		}
		return fresh.ScriptClick(ctx)
	}()
	e.observe(Attempt{Op: op, Strategy: StrategyScripted, Err: err})
	errs := []error{resolveErr}
	if err != nil {
		errs = append(errs, err)
	}
	return e.outcome(op, t, errs, err == nil)
}

// outcome turns the chain result into the operation's error.
func (e *Engine) outcome(op string, t Target, errs []error, ok bool) error {
	if ok {
		if len(errs) > 0 {
			e.recorder.FallbackUsed(op, "recovered")
		}
		return nil
	}
	e.recorder.FallbackUsed(op, "failed")
	e.logger.Error("Scripted fallback also failed.", zap.String("op", op), zap.Stringer("target", t), zap.Error(errs[1]))
	return &InteractionError{Op: op, Target: t.String(), Native: errs[0], Fallback: errs[1]}
}

// SendInput waits for visibility, optionally clicks to focus, clears the field
// and types value. A nil value leaves the field cleared.
func (e *Engine) SendInput(ctx context.Context, t Target, value *string, clickFirst bool) error {
	d, el, err := e.visible(ctx, t)
	if err != nil {
		return err
	}
	if clickFirst {
		e.logger.Debug("Clicking element before sending keys.", zap.Stringer("target", t))
		if err := e.clickWithFallback(ctx, "send_input", d, t, el); err != nil {
			return err
		}
	}
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("clearing %s: %w", t, err)
	}
	if value == nil {
		return nil
	}
	e.logger.Debug("Sending keys.", zap.Stringer("target", t), zap.Int("length", len(*value)))
	if err := el.SendKeys(ctx, *value); err != nil {
		return fmt.Errorf("typing into %s: %w", t, err)
	}
	return nil
}

// SelectFromNativeControl picks the <option> of a native select by its visible
// text. A nil text is a no-op once the control is visible.
func (e *Engine) SelectFromNativeControl(ctx context.Context, t Target, text *string) error {
	_, el, err := e.visible(ctx, t)
	if err != nil {
		return err
	}
	if text == nil {
		return nil
	}
	e.logger.Debug("Selecting visible text.", zap.Stringer("target", t), zap.String("text", *text))
	if err := el.SelectByVisibleText(ctx, *text); err != nil {
		return fmt.Errorf("selecting %q in %s: %w", *text, t, err)
	}
	return nil
}

// CustomDropdownSelect opens a scripted dropdown and picks an option, each with
// its own click fallback.
func (e *Engine) CustomDropdownSelect(ctx context.Context, dropdown, option Target) error {
	e.logger.Debug("Selecting option from custom dropdown.", zap.Stringer("dropdown", dropdown), zap.Stringer("option", option))
	if err := e.click(ctx, "dropdown_open", dropdown); err != nil {
		return fmt.Errorf("opening dropdown: %w", err)
	}
	if err := e.click(ctx, "dropdown_option", option); err != nil {
		return fmt.Errorf("choosing dropdown option: %w", err)
	}
	return nil
}

// ReadText waits for visibility and returns the element's text.
func (e *Engine) ReadText(ctx context.Context, t Target) (string, error) {
	_, el, err := e.visible(ctx, t)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// ReadTexts returns the distinct texts of els in first-seen order.
func (e *Engine) ReadTexts(ctx context.Context, els []driver.Element) ([]string, error) {
	seen := make(map[string]struct{}, len(els))
	out := make([]string, 0, len(els))
	for _, el := range els {
		txt, err := el.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", el, err)
		}
		if _, dup := seen[txt]; dup {
			continue
		}
		seen[txt] = struct{}{}
		out = append(out, txt)
	}
	return out, nil
}

func (e *Engine) Attribute(ctx context.Context, t Target, name string) (string, bool, error) {
	d, _, err := e.current()
	if err != nil {
		return "", false, err
	}
	el, err := t.resolve(ctx, d)
	if err != nil {
		return "", false, err
	}
	return el.Attribute(ctx, name)
}

// SwitchToFrame waits for the frame to be available and enters it.
func (e *Engine) SwitchToFrame(ctx context.Context, t Target) error {
	d, waits, err := e.current()
	if err != nil {
		return err
	}
	el, err := t.resolve(ctx, d)
	if err != nil {
		return err
	}
	if err := waits.Bounded.Until(ctx, wait.FrameAvailable(d, el)); err != nil {
		return fmt.Errorf("switching to frame %s: %w", t, err)
	}
	return nil
}

func (e *Engine) SwitchToDefault(ctx context.Context) error {
	d, _, err := e.current()
	if err != nil {
		return err
	}
	return d.SwitchToDefault(ctx)
}

// AlertText waits for a dialog and returns its message.
func (e *Engine) AlertText(ctx context.Context) (string, error) {
	d, waits, err := e.current()
	if err != nil {
		return "", err
	}
	if err := waits.Bounded.Until(ctx, wait.AlertPresent(d)); err != nil {
		return "", err
	}
	txt, _, err := d.AlertText(ctx)
	return txt, err
}

func (e *Engine) AcceptAlert(ctx context.Context) error {
	d, _, err := e.current()
	if err != nil {
		return err
	}
	return d.AcceptAlert(ctx)
}

func (e *Engine) ScrollIntoView(ctx context.Context, t Target) error {
	d, _, err := e.current()
	if err != nil {
		return err
	}
	el, err := t.resolve(ctx, d)
	if err != nil {
		return err
	}
	return el.ScrollIntoView(ctx)
}

// Hover waits for the target to be visible and moves the pointer over it, e.g.
// to open a menu that only renders on mouseover.
func (e *Engine) Hover(ctx context.Context, t Target) error {
	_, el, err := e.visible(ctx, t)
	if err != nil {
		return err
	}
	if err := el.Hover(ctx); err != nil {
		return fmt.Errorf("hovering over %s: %w", t, err)
	}
	return nil
}

// KeyChord presses key with mod held on whatever has focus, such as Control+a.
func (e *Engine) KeyChord(ctx context.Context, mod driver.Modifier, key string) error {
	d, _, err := e.current()
	if err != nil {
		return err
	}
	if err := d.KeyChord(ctx, mod, key); err != nil {
		return fmt.Errorf("pressing %s+%s: %w", mod, key, err)
	}
	return nil
}

// TabThenEnter moves focus to the next control and activates it.
func (e *Engine) TabThenEnter(ctx context.Context) error {
	return e.pressKeys(ctx, driver.KeyTab, driver.KeyEnter)
}

// EscapeThenEnter dismisses an overlay and submits whatever keeps focus.
func (e *Engine) EscapeThenEnter(ctx context.Context) error {
	return e.pressKeys(ctx, driver.KeyEscape, driver.KeyEnter)
}

func (e *Engine) pressKeys(ctx context.Context, keys ...driver.Key) error {
	d, _, err := e.current()
	if err != nil {
		return err
	}
	if err := d.PressKeys(ctx, keys...); err != nil {
		return fmt.Errorf("pressing %v: %w", keys, err)
	}
	return nil
}

// WindowHandles lists the open top-level pages of the session.
func (e *Engine) WindowHandles(ctx context.Context) ([]string, error) {
	d, _, err := e.current()
	if err != nil {
		return nil, err
	}
	return d.WindowHandles(ctx)
}

// FluentVisible waits with the polling wait, so lookups that race a DOM
// re-render are retried. It returns the element that became visible.
func (e *Engine) FluentVisible(ctx context.Context, t Target) (driver.Element, error) {
	d, waits, err := e.current()
	if err != nil {
		return nil, err
	}
	var found driver.Element
	cond := wait.Condition{
		Kind:    wait.KindVisible,
		Subject: t.String(),
		Check: func(ctx context.Context) (bool, error) {
			el, err := t.resolve(ctx, d)
			if err != nil {
				return false, err
			}
			shown, err := el.IsDisplayed(ctx)
			if err == nil && shown {
				found = el
			}
			return shown, err
		},
	}
	if err := waits.Polling.Until(ctx, cond); err != nil {
		return nil, err
	}
	return found, nil
}

// PollUntilFilePresent reports whether a file whose name contains pattern shows
// up in dir within timeout. Absence is an answer, not an error.
func (e *Engine) PollUntilFilePresent(ctx context.Context, pattern, dir string, timeout time.Duration) bool {
	return e.downloads.Present(ctx, dir, pattern, timeout)
}

// RemoveDownloaded deletes the first file in dir whose name contains pattern,
// waiting up to timeout for it to appear.
func (e *Engine) RemoveDownloaded(ctx context.Context, pattern, dir string, timeout time.Duration) bool {
	return e.downloads.Remove(ctx, dir, pattern, timeout)
}

// visible resolves t and waits for it to be displayed.
func (e *Engine) visible(ctx context.Context, t Target) (driver.Driver, driver.Element, error) {
	d, waits, err := e.current()
	if err != nil {
		return nil, nil, err
	}
	el, err := t.resolve(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	if err := waits.Bounded.Until(ctx, wait.Visible(el)); err != nil {
		return nil, nil, fmt.Errorf("waiting for %s: %w", t, err)
	}
	return d, el, nil
}
