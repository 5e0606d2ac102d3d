// internal/browser/driver/driver.go
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the browser family backing a session.
type Kind string

const (
	Chrome  Kind = "chrome"
	Firefox Kind = "firefox"
	Safari  Kind = "safari"
	Edge    Kind = "edge"
)

// Kinds lists every supported browser kind.
var Kinds = []Kind{Chrome, Firefox, Safari, Edge}

// ParseKind normalizes a user supplied browser name (case-insensitive, trimmed).
// It fails with an UnsupportedKindError for anything outside Kinds.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", &UnsupportedKindError{Kind: raw}
}

// Strategy selects how a Query value is interpreted.
type Strategy string

const (
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
)

// Query is a locator handed over by the page-object layer. It is opaque to the core.
type Query struct {
	By    Strategy
	Value string
}

// CSS builds a CSS selector query.
func CSS(selector string) Query { return Query{By: ByCSS, Value: selector} }

// XPath builds an XPath query.
func XPath(expr string) Query { return Query{By: ByXPath, Value: expr} }

func (q Query) String() string {
	by := q.By
	if by == "" {
		by = ByCSS
	}
	return fmt.Sprintf("%s=%s", by, q.Value)
}

// Key names a non-printing key using the DOM KeyboardEvent.key values.
type Key string

const (
	KeyTab    Key = "Tab"
	KeyEscape Key = "Escape"
	KeyEnter  Key = "Enter"
)

// Modifier is a key held down during a chord.
type Modifier string

const (
	ModControl Modifier = "Control"
	ModShift   Modifier = "Shift"
	ModAlt     Modifier = "Alt"
	ModMeta    Modifier = "Meta"
)

// Element is a live reference to a node in the current document.
// Any method may fail with a TransientError once the node has been replaced.
type Element interface {
	Click(ctx context.Context) error
	// ScriptClick invokes HTMLElement.click() inside the page instead of dispatching input events.
	ScriptClick(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, value string) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	// SelectByVisibleText selects the <option> whose trimmed text equals text.
	// Zero matches yield an OptionNotFoundError.
	SelectByVisibleText(ctx context.Context, text string) error
	ScrollIntoView(ctx context.Context) error
	// Hover moves the pointer over the element's center.
	Hover(ctx context.Context) error
	String() string
}

// Relocatable is implemented by elements that remember how they were found and
// can look themselves up again in the current document.
type Relocatable interface {
	Relocate(ctx context.Context) (Element, error)
}

// Driver is one live native browser automation connection.
type Driver interface {
	Kind() Kind
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	DeleteAllCookies(ctx context.Context) error
	// MaximizeWindow maximizes the window, or applies the viewport when the
	// browser has no window manager (headless).
	MaximizeWindow(ctx context.Context, viewport Viewport) error
	// FindElement returns the first match or a TransientError(NoSuchElement).
	FindElement(ctx context.Context, q Query) (Element, error)
	// FindElements never fails on zero matches; it returns an empty slice.
	FindElements(ctx context.Context, q Query) ([]Element, error)
	// SwitchToFrame scopes later lookups to the frame's document.
	SwitchToFrame(ctx context.Context, frame Element) error
	SwitchToDefault(ctx context.Context) error
	// AlertText reports the message of an open JavaScript dialog, if any.
	AlertText(ctx context.Context) (string, bool, error)
	AcceptAlert(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	// KeyChord presses key while mod is held. Events go to the focused element.
	KeyChord(ctx context.Context, mod Modifier, key string) error
	// PressKeys presses and releases each key in order on the focused element.
	PressKeys(ctx context.Context, keys ...Key) error
	// WindowHandles lists an ID for every open top-level page of the session.
	WindowHandles(ctx context.Context) ([]string, error)
	Quit(ctx context.Context) error
}

// Viewport is the browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions is the baseline configuration applied when a native session is created.
type LaunchOptions struct {
	DownloadDir               string
	Incognito                 bool
	AcceptInsecureCerts       bool
	DisableCredentialStore    bool
	DisablePasswordManager    bool
	DisableAutomationFlagging bool
	Headless                  bool
	Viewport                  Viewport
	RemoteURL                 string
	Args                      []string
	LaunchTimeout             time.Duration
}

// Launcher constructs native sessions. Implementations must not leave
// processes behind when Launch fails.
type Launcher interface {
	Launch(ctx context.Context, kind Kind, opts LaunchOptions) (Driver, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, kind Kind, opts LaunchOptions) (Driver, error)

// Launch implements Launcher.
func (f LauncherFunc) Launch(ctx context.Context, kind Kind, opts LaunchOptions) (Driver, error) {
	return f(ctx, kind, opts)
}

// Mux routes each kind to the launcher registered for it.
type Mux map[Kind]Launcher

// Launch implements Launcher.
func (m Mux) Launch(ctx context.Context, kind Kind, opts LaunchOptions) (Driver, error) {
	l, ok := m[kind]
	if !ok || l == nil {
		return nil, &UnsupportedKindError{Kind: string(kind)}
	}
	return l.Launch(ctx, kind, opts)
}
