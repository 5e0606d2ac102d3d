// internal/browser/cdp/cdp_test.go
package cdp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func baseline() driver.LaunchOptions {
	return driver.LaunchOptions{
		Incognito:                 true,
		AcceptInsecureCerts:       true,
		DisableCredentialStore:    true,
		DisablePasswordManager:    true,
		DisableAutomationFlagging: true,
		Viewport:                  driver.Viewport{Width: 1920, Height: 1080},
	}
}

func TestLaunchFlags(t *testing.T) {
	t.Run("baseline", func(t *testing.T) {
		flags := launchFlags(baseline())
		assert.Equal(t, true, flags["incognito"])
		assert.Equal(t, true, flags["ignore-certificate-errors"])
		assert.Equal(t, false, flags["enable-automation"], "automation switch must be removed")
		assert.Equal(t, "AutomationControlled", flags["disable-blink-features"])
		assert.Equal(t, "basic", flags["password-store"])
		assert.Equal(t, "1920,1080", flags["window-size"])
		assert.Equal(t, "*", flags["remote-allow-origins"])
		assert.Equal(t, false, flags["headless"])
		assert.Equal(t, true, flags["start-maximized"])
	})

	t.Run("headless keeps the default", func(t *testing.T) {
		opts := baseline()
		opts.Headless = true
		flags := launchFlags(opts)
		_, overridden := flags["headless"]
		assert.False(t, overridden)
		_, maximized := flags["start-maximized"]
		assert.False(t, maximized)
	})

	t.Run("nothing requested", func(t *testing.T) {
		flags := launchFlags(driver.LaunchOptions{Headless: true})
		for _, name := range []string{"incognito", "ignore-certificate-errors", "enable-automation", "window-size"} {
			_, ok := flags[name]
			assert.False(t, ok, name)
		}
	})
}

func TestAllocatorOptions(t *testing.T) {
	opts := baseline()
	opts.Args = []string{"--lang=en-US", "--mute-audio"}
	allocOpts := AllocatorOptions(opts, t.TempDir())
	// defaults + one option per flag + user data dir + user args
	want := len(chromedp.DefaultExecAllocatorOptions) + len(launchFlags(opts)) + 1 + 2
	assert.Len(t, allocOpts, want)
}

func TestSplitArg(t *testing.T) {
	name, value := splitArg("--lang=en-US")
	assert.Equal(t, "lang", name)
	assert.Equal(t, "en-US", value)

	name, value = splitArg("--mute-audio")
	assert.Equal(t, "mute-audio", name)
	assert.Equal(t, true, value)
}

func TestWritePreferences(t *testing.T) {
	dir := t.TempDir()
	opts := baseline()
	opts.DownloadDir = filepath.Join(dir, "downloads")
	require.NoError(t, WritePreferences(dir, opts))

	data, err := os.ReadFile(filepath.Join(dir, "Default", "Preferences"))
	require.NoError(t, err)

	var prefs map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &prefs))
	assert.Equal(t, false, prefs["credentials_enable_service"])
	assert.Equal(t, map[string]interface{}{
		"password_manager_enabled": false,
		"default_content_settings": map[string]interface{}{"popups": float64(0)},
	}, prefs["profile"])
	download, ok := prefs["download"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, opts.DownloadDir, download["default_directory"])
	assert.Equal(t, false, download["prompt_for_download"])
}

func TestWritePreferences_Empty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WritePreferences(dir, driver.LaunchOptions{}))
	data, err := os.ReadFile(filepath.Join(dir, "Default", "Preferences"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"profile": {"default_content_settings": {"popups": 0}}}`, string(data))
}

func TestClassify(t *testing.T) {
	stale := &cdproto.Error{Code: -32000, Message: "Could not find node with given id"}
	err := classify("css=#go", stale)
	assert.True(t, driver.IsTransient(err))
	assert.ErrorIs(t, err, driver.ErrStaleElement)
	assert.ErrorIs(t, err, stale)

	plain := errors.New("Cannot navigate to invalid URL")
	assert.Same(t, plain, classify("css=#go", plain))
	assert.NoError(t, classify("css=#go", nil))

	already := driver.NoSuchElement("css=#go")
	assert.Same(t, already, classify("css=#go", already))

	assert.True(t, isStale(errors.New("wrapped: No node with given id found")))
}

func TestActionContext(t *testing.T) {
	t.Run("caller deadline becomes the cause", func(t *testing.T) {
		type key struct{}
		tab := context.WithValue(context.Background(), key{}, "target")
		caller, cancelCaller := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancelCaller()

		ctx, cancel := actionContext(tab, caller)
		defer cancel()

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("action context outlived its caller")
		}
		assert.ErrorIs(t, context.Cause(ctx), context.DeadlineExceeded)
		assert.Equal(t, "target", ctx.Value(key{}))
		assert.ErrorIs(t, callerErr(caller, ctx.Err()), context.DeadlineExceeded)
	})

	t.Run("tab cancellation ends it", func(t *testing.T) {
		tab, cancelTab := context.WithCancel(context.Background())
		ctx, cancel := actionContext(tab, context.Background())
		defer cancel()

		cancelTab()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("release leaves the caller alone", func(t *testing.T) {
		caller, cancelCaller := context.WithCancel(context.Background())
		defer cancelCaller()
		ctx, cancel := actionContext(context.Background(), caller)
		cancel()

		assert.ErrorIs(t, ctx.Err(), context.Canceled)
		assert.NoError(t, caller.Err())
		err := errors.New("node gone")
		assert.Same(t, err, callerErr(caller, err))
	})
}

func TestKeySequence(t *testing.T) {
	seq, err := keySequence(driver.KeyTab, driver.KeyEnter, driver.KeyEscape)
	require.NoError(t, err)
	assert.Equal(t, "\t\r\u001b", seq)

	_, err = keySequence(driver.Key("F13"))
	assert.ErrorContains(t, err, `unsupported key "F13"`)
}

func TestCenter(t *testing.T) {
	x, y := center(dom.Quad{10, 20, 110, 20, 110, 60, 10, 60})
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 40.0, y)

	x, y = center(nil)
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestLauncher_RejectsOtherKinds(t *testing.T) {
	l := NewLauncher(zaptest.NewLogger(t))
	_, err := l.Launch(context.Background(), driver.Firefox, baseline())
	assert.ErrorIs(t, err, driver.ErrUnsupportedKind)
}
