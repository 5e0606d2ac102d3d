// internal/browser/pw/pw_test.go
package pw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

func TestSelector(t *testing.T) {
	assert.Equal(t, "css=#login", selector(driver.CSS("#login")))
	assert.Equal(t, "xpath=//button[1]", selector(driver.XPath("//button[1]")))
	assert.Equal(t, "css=.row", selector(driver.Query{Value: ".row"}))
}

func TestClassify(t *testing.T) {
	detached := errors.New("elementHandle.click: Element is not attached to the DOM")
	err := classify("css=#go", detached)
	assert.True(t, driver.IsTransient(err))
	assert.ErrorIs(t, err, driver.ErrStaleElement)

	other := errors.New("timeout 30000ms exceeded")
	assert.Same(t, other, classify("css=#go", other))
	assert.NoError(t, classify("css=#go", nil))
}

func TestLaunchOptions(t *testing.T) {
	opts := driver.LaunchOptions{
		DownloadDir:               "/tmp/dl",
		DisableAutomationFlagging: true,
		DisableCredentialStore:    true,
		DisablePasswordManager:    true,
		LaunchTimeout:             30 * time.Second,
		Args:                      []string{"--lang=en-US"},
	}

	t.Run("edge", func(t *testing.T) {
		lo := launchOptions(driver.Edge, "msedge", opts)
		require.NotNil(t, lo.Channel)
		assert.Equal(t, "msedge", *lo.Channel)
		assert.Equal(t, []string{"--enable-automation"}, lo.IgnoreDefaultArgs)
		assert.Contains(t, lo.Args, "--disable-blink-features=AutomationControlled")
		assert.Contains(t, lo.Args, "--password-store=basic")
		assert.Contains(t, lo.Args, "--start-maximized")
		assert.Contains(t, lo.Args, "--lang=en-US")
		require.NotNil(t, lo.Timeout)
		assert.Equal(t, 30000.0, *lo.Timeout)
		require.NotNil(t, lo.DownloadsPath)
		assert.Equal(t, "/tmp/dl", *lo.DownloadsPath)
		assert.Nil(t, lo.FirefoxUserPrefs)
	})

	t.Run("firefox", func(t *testing.T) {
		lo := launchOptions(driver.Firefox, "", opts)
		assert.Nil(t, lo.Channel)
		assert.Equal(t, false, lo.FirefoxUserPrefs["signon.rememberSignons"])
		assert.Equal(t, false, lo.FirefoxUserPrefs["dom.webdriver.enabled"])
		assert.Equal(t, []string{"--lang=en-US"}, lo.Args)
	})

	t.Run("safari", func(t *testing.T) {
		lo := launchOptions(driver.Safari, "", driver.LaunchOptions{Headless: true})
		require.NotNil(t, lo.Headless)
		assert.True(t, *lo.Headless)
		assert.Nil(t, lo.Timeout)
		assert.Nil(t, lo.FirefoxUserPrefs)
	})
}

func TestContextOptions(t *testing.T) {
	co := contextOptions(driver.LaunchOptions{AcceptInsecureCerts: true, Viewport: driver.Viewport{Width: 1280, Height: 720}})
	require.NotNil(t, co.AcceptDownloads)
	assert.True(t, *co.AcceptDownloads)
	require.NotNil(t, co.IgnoreHttpsErrors)
	assert.True(t, *co.IgnoreHttpsErrors)
	require.NotNil(t, co.Viewport)
	assert.Equal(t, 1280, co.Viewport.Width)
	assert.Equal(t, 720, co.Viewport.Height)

	assert.Nil(t, contextOptions(driver.LaunchOptions{}).Viewport)
}

func TestLauncher_UnsupportedKind(t *testing.T) {
	l := NewLauncher(zaptest.NewLogger(t))
	_, err := l.Launch(context.Background(), driver.Kind("opera"), driver.LaunchOptions{})
	assert.ErrorIs(t, err, driver.ErrUnsupportedKind)
	assert.NoError(t, l.Close(), "closing a never-started launcher is a no-op")
}

// stubHandle counts Dispose calls; every other ElementHandle method panics.
type stubHandle struct {
	playwright.ElementHandle
	name     string
	disposed int
}

func (h *stubHandle) Dispose() error {
	h.disposed++
	return nil
}

type stubFrame struct {
	playwright.Frame
	handles []playwright.ElementHandle
}

func (f *stubFrame) QuerySelectorAll(string) ([]playwright.ElementHandle, error) {
	return f.handles, nil
}

type stubPage struct {
	playwright.Page
	name string
}

func stubDriver(t *testing.T, handles ...*stubHandle) (*Driver, *stubFrame) {
	frame := &stubFrame{}
	for _, h := range handles {
		frame.handles = append(frame.handles, h)
	}
	d := &Driver{kind: driver.Firefox, logger: zaptest.NewLogger(t), frame: frame, handles: map[playwright.Page]string{}}
	return d, frame
}

func TestFindElement_DisposesUnusedHandles(t *testing.T) {
	first, second, third := &stubHandle{name: "a"}, &stubHandle{name: "b"}, &stubHandle{name: "c"}
	d, _ := stubDriver(t, first, second, third)

	el, err := d.FindElement(context.Background(), driver.CSS("li"))
	require.NoError(t, err)
	assert.Same(t, first, el.(*element).handle)
	assert.Equal(t, 0, first.disposed)
	assert.Equal(t, 1, second.disposed)
	assert.Equal(t, 1, third.disposed)
}

func TestRelocate_ReleasesReplacedHandle(t *testing.T) {
	old := &stubHandle{name: "old"}
	d, frame := stubDriver(t)
	el := &element{d: d, handle: old, query: driver.CSS("li"), frame: frame, index: 1}

	fresh := []*stubHandle{{name: "0"}, {name: "1"}, {name: "2"}}
	for _, h := range fresh {
		frame.handles = append(frame.handles, h)
	}

	got, err := el.Relocate(context.Background())
	require.NoError(t, err)
	assert.Same(t, fresh[1], got.(*element).handle)
	assert.Equal(t, 1, old.disposed)
	assert.Equal(t, []int{1, 0, 1}, []int{fresh[0].disposed, fresh[1].disposed, fresh[2].disposed})

	t.Run("index out of range", func(t *testing.T) {
		only := &stubHandle{name: "only"}
		frame.handles = []playwright.ElementHandle{only}
		_, err := got.(driver.Relocatable).Relocate(context.Background())
		assert.ErrorIs(t, err, driver.ErrNoSuchElement)
		assert.Equal(t, 1, only.disposed)
	})
}

func TestWindowHandles_StablePerPage(t *testing.T) {
	d, _ := stubDriver(t)
	main, popup, later := &stubPage{name: "main"}, &stubPage{name: "popup"}, &stubPage{name: "later"}

	first := d.handlesFor([]playwright.Page{main, popup})
	require.Len(t, first, 2)
	assert.NotEqual(t, first[0], first[1])

	second := d.handlesFor([]playwright.Page{main, later})
	require.Len(t, second, 2)
	assert.Equal(t, first[0], second[0], "an open page keeps its handle")
	assert.NotContains(t, first, second[1])
	_, tracked := d.handles[popup]
	assert.False(t, tracked, "closed pages are forgotten")
}

func TestChord(t *testing.T) {
	assert.Equal(t, "Control+a", chord(driver.ModControl, "a"))
	assert.Equal(t, "Shift+Tab", chord(driver.ModShift, string(driver.KeyTab)))
}

func TestDriver_HonorsCanceledContext(t *testing.T) {
	d, _ := stubDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, d.KeyChord(ctx, driver.ModControl, "a"), context.Canceled)
	_, err := d.WindowHandles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, (&element{d: d, handle: &stubHandle{}}).Hover(ctx), context.Canceled)
}
