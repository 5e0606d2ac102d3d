// internal/browser/pw/launcher.go
package pw

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

const installTimeout = 5 * time.Minute

// Launcher starts Firefox, WebKit (safari) and Edge sessions through one shared
// Playwright driver process. The driver starts on first use.
type Launcher struct {
	logger  *zap.Logger
	install bool

	startOnce sync.Once
	startErr  error
	pw        *playwright.Playwright
}

var _ driver.Launcher = (*Launcher)(nil)

// Option configures a Launcher.
type Option func(*Launcher)

// WithInstall makes the launcher download the Playwright browsers before the first launch.
func WithInstall() Option {
	return func(l *Launcher) { l.install = true }
}

func NewLauncher(logger *zap.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Launcher{logger: logger.Named("playwright")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Launcher) start(ctx context.Context) error {
	l.startOnce.Do(func() {
		if l.install {
			if err := l.ensureInstallation(ctx); err != nil {
				l.startErr = err
				return
			}
		}
		pw, err := playwright.Run()
		if err != nil {
			l.startErr = fmt.Errorf("failed to start playwright driver: %w", err)
			return
		}
		l.pw = pw
		l.logger.Info("Playwright driver started.")
	})
	return l.startErr
}

func (l *Launcher) ensureInstallation(ctx context.Context) error {
	l.logger.Info("Verifying Playwright browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		opts := &playwright.RunOptions{Browsers: []string{"chromium", "firefox", "webkit"}}
		if err := playwright.Install(opts); err != nil {
			errc <- fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

func (l *Launcher) browserType(kind driver.Kind) (playwright.BrowserType, string, error) {
	switch kind {
	case driver.Firefox:
		return l.pw.Firefox, "", nil
	case driver.Safari:
		return l.pw.WebKit, "", nil
	case driver.Edge:
		return l.pw.Chromium, "msedge", nil
	case driver.Chrome:
		return l.pw.Chromium, "chrome", nil
	}
	return nil, "", &driver.UnsupportedKindError{Kind: string(kind)}
}

// Launch starts a browser, opens an isolated context and one page in it.
func (l *Launcher) Launch(ctx context.Context, kind driver.Kind, opts driver.LaunchOptions) (driver.Driver, error) {
	if _, err := driver.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := l.start(ctx); err != nil {
		return nil, err
	}
	bt, channel, err := l.browserType(kind)
	if err != nil {
		return nil, err
	}

	var b playwright.Browser
	if opts.RemoteURL != "" {
		b, err = bt.Connect(opts.RemoteURL)
	} else {
		b, err = bt.Launch(launchOptions(kind, channel, opts))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", kind, err)
	}
	if err := ctx.Err(); err != nil {
		b.Close()
		return nil, err
	}

	bctx, err := b.NewContext(contextOptions(opts))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	d := newDriver(kind, b, bctx, page, opts.DownloadDir, l.logger)
	l.logger.Debug("Playwright session started.", zap.String("kind", string(kind)), zap.String("version", b.Version()))
	return d, nil
}

// Close stops the shared Playwright driver.
func (l *Launcher) Close() error {
	if l.pw == nil {
		return nil
	}
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright driver: %w", err)
	}
	return nil
}

func launchOptions(kind driver.Kind, channel string, opts driver.LaunchOptions) playwright.BrowserTypeLaunchOptions {
	lo := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     append([]string(nil), opts.Args...),
	}
	if opts.LaunchTimeout > 0 {
		lo.Timeout = playwright.Float(float64(opts.LaunchTimeout.Milliseconds()))
	}
	if opts.DownloadDir != "" {
		lo.DownloadsPath = playwright.String(opts.DownloadDir)
	}

	switch kind {
	case driver.Chrome, driver.Edge:
		lo.Channel = playwright.String(channel)
		if opts.DisableAutomationFlagging {
			lo.IgnoreDefaultArgs = []string{"--enable-automation"}
			lo.Args = append(lo.Args, "--disable-blink-features=AutomationControlled")
		}
		if opts.DisableCredentialStore {
			lo.Args = append(lo.Args, "--password-store=basic")
		}
		if !opts.Headless {
			lo.Args = append(lo.Args, "--start-maximized")
		}
	case driver.Firefox:
		prefs := map[string]interface{}{}
		if opts.DisablePasswordManager || opts.DisableCredentialStore {
			prefs["signon.rememberSignons"] = false
			prefs["signon.autofillForms"] = false
		}
		if opts.DisableAutomationFlagging {
			prefs["dom.webdriver.enabled"] = false
		}
		if len(prefs) > 0 {
			lo.FirefoxUserPrefs = prefs
		}
	}
	return lo
}

// contextOptions maps the baseline onto a fresh browser context. Playwright
// contexts never persist a profile, which covers incognito.
func contextOptions(opts driver.LaunchOptions) playwright.BrowserNewContextOptions {
	co := playwright.BrowserNewContextOptions{
		AcceptDownloads:   playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(opts.AcceptInsecureCerts),
	}
	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		co.Viewport = &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height}
	}
	return co
}
