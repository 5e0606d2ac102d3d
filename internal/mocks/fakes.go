// File: internal/mocks/fakes.go
package mocks

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// FakeElement is a scripted, concurrency-safe driver.Element. Error fields are
// returned by the matching method; the *Errs queues are drained one per call
// before the steady-state value is used.
type FakeElement struct {
	mu sync.Mutex

	Name      string
	Value     string
	Attrs     map[string]string
	Displayed bool
	Enabled   bool
	Options   []string
	Selected  string

	ClickErr       error
	ScriptClickErr error
	ClearErr       error
	SendKeysErr    error
	HoverErr       error
	DisplayedErrs  []error
	RelocateFn     func(ctx context.Context) (driver.Element, error)

	clicks       int
	scriptClicks int
	scrolls      int
	hovers       int
	calls        []string
}

// NewFakeElement returns a displayed, enabled element.
func NewFakeElement(name string) *FakeElement {
	return &FakeElement{Name: name, Displayed: true, Enabled: true, Attrs: map[string]string{}}
}

func (e *FakeElement) record(call string) {
	e.calls = append(e.calls, call)
}

// Calls lists the mutating calls made so far, in order.
func (e *FakeElement) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *FakeElement) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *FakeElement) ScriptClicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scriptClicks
}

func (e *FakeElement) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value
}

func (e *FakeElement) Click(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	e.record("click")
	return e.ClickErr
}

func (e *FakeElement) ScriptClick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scriptClicks++
	e.record("script_click")
	return e.ScriptClickErr
}

func (e *FakeElement) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("clear")
	if e.ClearErr != nil {
		return e.ClearErr
	}
	e.Value = ""
	return nil
}

func (e *FakeElement) SendKeys(ctx context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("send_keys")
	if e.SendKeysErr != nil {
		return e.SendKeysErr
	}
	e.Value += value
	return nil
}

func (e *FakeElement) Text(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value, nil
}

func (e *FakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *FakeElement) IsDisplayed(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.DisplayedErrs) > 0 {
		err := e.DisplayedErrs[0]
		e.DisplayedErrs = e.DisplayedErrs[1:]
		if err != nil {
			return false, err
		}
	}
	return e.Displayed, nil
}

// SetDisplayed flips visibility from another goroutine.
func (e *FakeElement) SetDisplayed(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Displayed = v
}

func (e *FakeElement) IsEnabled(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Enabled, nil
}

func (e *FakeElement) SelectByVisibleText(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("select")
	for _, o := range e.Options {
		if strings.TrimSpace(o) == text {
			e.Selected = o
			return nil
		}
	}
	return &driver.OptionNotFoundError{Text: text, Control: e.Name}
}

func (e *FakeElement) ScrollIntoView(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scrolls++
	e.record("scroll")
	return nil
}

func (e *FakeElement) Hover(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hovers++
	e.record("hover")
	return e.HoverErr
}

func (e *FakeElement) Hovers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hovers
}

func (e *FakeElement) Relocate(ctx context.Context) (driver.Element, error) {
	e.mu.Lock()
	fn := e.RelocateFn
	e.mu.Unlock()
	if fn == nil {
		return e, nil
	}
	return fn(ctx)
}

func (e *FakeElement) String() string { return e.Name }

// FakeDriver is an in-memory driver.Driver. Elements are registered per query
// string; FindErrs queues errors returned before the registered elements are.
type FakeDriver struct {
	mu sync.Mutex

	DriverKind      driver.Kind
	TitleValue      string
	ScreenshotBytes []byte
	CookieErr       error
	MaximizeErr     error
	KeysErr         error
	QuitErr         error

	// WindowIDs is what WindowHandles returns.
	WindowIDs []string

	elements map[string][]driver.Element
	findErrs map[string][]error
	alert    *string
	frame    driver.Element

	url            string
	refreshes      int
	cookiesCleared int
	maximized      []driver.Viewport
	keys           []string
	quits          int
}

func NewFakeDriver(kind driver.Kind) *FakeDriver {
	return &FakeDriver{
		DriverKind:      kind,
		ScreenshotBytes: []byte("\x89PNG"),
		WindowIDs:       []string{"window-1"},
		elements:        map[string][]driver.Element{},
		findErrs:        map[string][]error{},
	}
}

// Add registers elements returned for q.
func (d *FakeDriver) Add(q driver.Query, els ...driver.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[q.String()] = append(d.elements[q.String()], els...)
}

// Replace swaps the elements returned for q, as a re-render would.
func (d *FakeDriver) Replace(q driver.Query, els ...driver.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[q.String()] = els
}

// FailFind queues errors returned by lookups of q before it resolves normally.
func (d *FakeDriver) FailFind(q driver.Query, errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.findErrs[q.String()] = append(d.findErrs[q.String()], errs...)
}

// OpenAlert simulates a JavaScript dialog.
func (d *FakeDriver) OpenAlert(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alert = &msg
}

func (d *FakeDriver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *FakeDriver) Refreshes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshes
}

func (d *FakeDriver) CookiesCleared() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cookiesCleared
}

func (d *FakeDriver) Maximized() []driver.Viewport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]driver.Viewport(nil), d.maximized...)
}

func (d *FakeDriver) Quits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

func (d *FakeDriver) Frame() driver.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

func (d *FakeDriver) Kind() driver.Kind { return d.DriverKind }

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
	return nil
}

func (d *FakeDriver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	return nil
}

func (d *FakeDriver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.TitleValue, nil
}

func (d *FakeDriver) DeleteAllCookies(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cookiesCleared++
	return d.CookieErr
}

func (d *FakeDriver) MaximizeWindow(ctx context.Context, viewport driver.Viewport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maximized = append(d.maximized, viewport)
	return d.MaximizeErr
}

func (d *FakeDriver) FindElement(ctx context.Context, q driver.Query) (driver.Element, error) {
	els, err := d.FindElements(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, driver.NoSuchElement(q.String())
	}
	return els[0], nil
}

func (d *FakeDriver) FindElements(ctx context.Context, q driver.Query) ([]driver.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := q.String()
	if queued := d.findErrs[key]; len(queued) > 0 {
		d.findErrs[key] = queued[1:]
		return nil, queued[0]
	}
	return append([]driver.Element(nil), d.elements[key]...), nil
}

func (d *FakeDriver) SwitchToFrame(ctx context.Context, frame driver.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = frame
	return nil
}

func (d *FakeDriver) SwitchToDefault(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = nil
	return nil
}

func (d *FakeDriver) AlertText(ctx context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.alert == nil {
		return "", false, nil
	}
	return *d.alert, true, nil
}

func (d *FakeDriver) AcceptAlert(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alert = nil
	return nil
}

func (d *FakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ScreenshotBytes, nil
}

// Keys lists every key press so far. Chords are recorded as "Mod+key".
func (d *FakeDriver) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.keys...)
}

func (d *FakeDriver) KeyChord(ctx context.Context, mod driver.Modifier, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.KeysErr != nil {
		return d.KeysErr
	}
	d.keys = append(d.keys, string(mod)+"+"+key)
	return nil
}

func (d *FakeDriver) PressKeys(ctx context.Context, keys ...driver.Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.KeysErr != nil {
		return d.KeysErr
	}
	for _, k := range keys {
		d.keys = append(d.keys, string(k))
	}
	return nil
}

func (d *FakeDriver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.WindowIDs...), nil
}

func (d *FakeDriver) Quit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quits++
	return d.QuitErr
}

// FakeLauncher hands out FakeDrivers and counts how many it built.
type FakeLauncher struct {
	// Delay stalls every launch, widening race windows in tests.
	Delay time.Duration
	// Err fails every launch when set.
	Err error
	// Setup customizes each driver before it is returned.
	Setup func(d *FakeDriver)

	launches atomic.Int32
	mu       sync.Mutex
	drivers  []*FakeDriver
}

func (l *FakeLauncher) Launch(ctx context.Context, kind driver.Kind, opts driver.LaunchOptions) (driver.Driver, error) {
	l.launches.Add(1)
	if l.Delay > 0 {
		select {
		case <-time.After(l.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.Err != nil {
		return nil, l.Err
	}
	d := NewFakeDriver(kind)
	if l.Setup != nil {
		l.Setup(d)
	}
	l.mu.Lock()
	l.drivers = append(l.drivers, d)
	l.mu.Unlock()
	return d, nil
}

// Launches counts every Launch call, failed ones included.
func (l *FakeLauncher) Launches() int { return int(l.launches.Load()) }

// Drivers returns the drivers built so far.
func (l *FakeLauncher) Drivers() []*FakeDriver {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FakeDriver(nil), l.drivers...)
}
