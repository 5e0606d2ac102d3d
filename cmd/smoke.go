// File: cmd/smoke.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/uiharness/internal/browser/cdp"
	"github.com/xkilldash9x/uiharness/internal/browser/driver"
	"github.com/xkilldash9x/uiharness/internal/browser/pw"
	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/harness"
	"github.com/xkilldash9x/uiharness/internal/interact"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/session"
	"github.com/xkilldash9x/uiharness/internal/wait"
)

const shutdownTimeout = 30 * time.Second

// newLauncher is swapped out in tests. The returned func releases whatever the
// launcher holds once every session is gone.
var newLauncher = defaultLauncher

func defaultLauncher(logger *zap.Logger, install bool) (driver.Launcher, func() error) {
	var pwOpts []pw.Option
	if install {
		pwOpts = append(pwOpts, pw.WithInstall())
	}
	playwright := pw.NewLauncher(logger, pwOpts...)
	mux := driver.Mux{
		driver.Chrome:  cdp.NewLauncher(logger),
		driver.Firefox: playwright,
		driver.Safari:  playwright,
		driver.Edge:    playwright,
	}
	return mux, playwright.Close
}

type smokeOptions struct {
	target      string
	workers     int
	waitFor     string
	click       string
	metricsFile string
	install     bool
}

func newSmokeCmd() *cobra.Command {
	var opts smokeOptions
	var headless bool

	smokeCmd := &cobra.Command{
		Use:   "smoke [url]",
		Short: "Open a page on one or more workers and report its title",
		Long: `Runs a navigate scenario against the given URL on every worker, with the
configured retry policy. Optionally waits for an element to become visible and
clicks another before reading the page title.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}
			opts.target = args[0]
			if err := opts.validate(); err != nil {
				return err
			}

			logger := observability.GetLogger()
			launcher, release := newLauncher(logger, opts.install)
			defer func() {
				if err := release(); err != nil {
					logger.Warn("Failed to release browser launcher.", zap.Error(err))
				}
			}()
			return runSmoke(cmd.Context(), cfg, launcher, opts, logger, cmd.OutOrStdout())
		},
	}

	smokeCmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "Number of concurrent workers, each with its own browser session")
	smokeCmd.Flags().StringVar(&opts.waitFor, "wait-for", "", "CSS selector that must become visible after navigating")
	smokeCmd.Flags().StringVar(&opts.click, "click", "", "CSS selector to click once the page is loaded")
	smokeCmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus text metrics to this file when done")
	smokeCmd.Flags().BoolVar(&headless, "headless", false, "Run the browser without a visible window (overrides browser.headless)")
	smokeCmd.Flags().BoolVar(&opts.install, "install-browsers", false, "Install Playwright drivers and browsers before launching")
	return smokeCmd
}

func (o smokeOptions) validate() error {
	if o.workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", o.workers)
	}
	u, err := url.Parse(o.target)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", o.target, err)
	}
	if u.Scheme == "" || (u.Host == "" && u.Scheme != "file") {
		return fmt.Errorf("invalid url %q: an absolute URL is required", o.target)
	}
	return nil
}

type smokeReport struct {
	worker session.WorkerID
	title  string
	result harness.Result
}

func runSmoke(ctx context.Context, cfg *config.Config, launcher driver.Launcher, opts smokeOptions, logger *zap.Logger, out io.Writer) error {
	metrics := observability.NewMetrics()
	factory := session.NewFactory(launcher, cfg.Browser.LaunchOptions(), cfg.Wait, logger,
		session.WithRecorder(metrics),
		session.WithWaitOptions(wait.WithTimeoutHook(func(kind wait.ConditionKind) {
			metrics.WaitTimedOut(string(kind))
		})),
	)
	h := harness.New(cfg, factory, logger, harness.WithMetrics(metrics))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Harness shutdown reported errors.", zap.Error(err))
		}
	}()

	reports := make([]smokeReport, opts.workers)
	var g errgroup.Group
	for i := range reports {
		id := session.WorkerID(fmt.Sprintf("worker-%d", i+1))
		report := &reports[i]
		report.worker = id
		g.Go(func() error {
			report.result = h.Worker(id).RunScenario(ctx, "smoke "+opts.target, func(ctx context.Context, w *harness.Worker) error {
				title, err := smokeScenario(ctx, w, opts)
				report.title = title
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range reports {
		if r.result.Passed() {
			fmt.Fprintf(out, "%s\tPASSED\tattempts=%d\ttitle=%q\n", r.worker, r.result.Attempts, r.title)
			continue
		}
		failed++
		fmt.Fprintf(out, "%s\tFAILED\tattempts=%d\terror=%v\n", r.worker, r.result.Attempts, r.result.Err)
	}

	if opts.metricsFile != "" {
		if err := writeMetrics(metrics, opts.metricsFile); err != nil {
			return err
		}
		logger.Info("Metrics written.", zap.String("path", opts.metricsFile))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d smoke scenarios failed", failed, len(reports))
	}
	return nil
}

func smokeScenario(ctx context.Context, w *harness.Worker, opts smokeOptions) (string, error) {
	if err := w.Navigate(ctx, opts.target); err != nil {
		return "", err
	}
	if opts.waitFor != "" {
		if _, err := w.Interact().FluentVisible(ctx, interact.ByQuery(driver.CSS(opts.waitFor))); err != nil {
			return "", err
		}
	}
	if opts.click != "" {
		if err := w.Interact().ClickByQuery(ctx, driver.CSS(opts.click)); err != nil {
			return "", err
		}
	}
	return w.Title(ctx)
}

func writeMetrics(m *observability.Metrics, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	if err := m.WriteText(f); err != nil {
		f.Close()
		return fmt.Errorf("writing metrics: %w", err)
	}
	return f.Close()
}
