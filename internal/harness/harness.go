// internal/harness/harness.go
package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/interact"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/retry"
	"github.com/xkilldash9x/uiharness/internal/session"
	"github.com/xkilldash9x/uiharness/internal/wait"
)

// ErrScenarioPanicked wraps the value recovered from a panicking scenario.
var ErrScenarioPanicked = errors.New("scenario panicked")

const cleanupTimeout = 30 * time.Second

// Scenario is one test case body. It runs with a live session on w.
type Scenario func(ctx context.Context, w *Worker) error

// Result summarizes every attempt RunScenario made for one test case.
type Result struct {
	Name     string
	Attempts int
	// Err is the error of the last attempt, nil when it passed.
	Err         error
	Screenshots [][]byte
}

func (r Result) Passed() bool { return r.Err == nil }

// Harness is the per-process entry point for step definitions and lifecycle hooks.
type Harness struct {
	cfg          *config.Config
	factory      *session.Factory
	registry     *session.Registry
	policy       *retry.Policy
	logger       *zap.Logger
	metrics      *observability.Metrics
	interactOpts []interact.Option
}

type Option func(*Harness)

// WithMetrics reports fallbacks and retries to m. Session counts are reported
// by the factory, see session.WithRecorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Harness) { h.metrics = m }
}

// WithRetryPolicy replaces the policy built from cfg.Retry.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(h *Harness) { h.policy = p }
}

// WithInteractOptions is applied to the engine of every worker.
func WithInteractOptions(opts ...interact.Option) Option {
	return func(h *Harness) { h.interactOpts = append(h.interactOpts, opts...) }
}

func New(cfg *config.Config, factory *session.Factory, logger *zap.Logger, opts ...Option) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Harness{
		cfg:      cfg,
		factory:  factory,
		registry: session.NewRegistry(),
		logger:   logger.Named("harness"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.policy == nil {
		policyOpts := []retry.Option{retry.WithLogger(logger)}
		if h.metrics != nil {
			policyOpts = append(policyOpts, retry.WithRecorder(h.metrics))
		}
		h.policy = retry.NewPolicy(cfg.Retry.MaxRetryCount, policyOpts...)
	}
	if h.metrics != nil {
		h.interactOpts = append([]interact.Option{interact.WithRecorder(h.metrics)}, h.interactOpts...)
	}
	return h
}

func (h *Harness) Registry() *session.Registry { return h.registry }

// Worker binds a worker identity to this harness. Each concurrently running
// scenario needs its own identity.
func (h *Harness) Worker(id session.WorkerID) *Worker {
	sc := session.NewContext(id, h.registry)
	return &Worker{
		h:      h,
		sc:     sc,
		engine: interact.New(sc, h.logger, h.interactOpts...),
		logger: h.logger.With(zap.String("worker", string(id))),
	}
}

// Shutdown tears down every session still registered.
func (h *Harness) Shutdown(ctx context.Context) error {
	return h.factory.Shutdown(ctx, h.registry)
}

// Worker is the surface step definitions use. It is confined to one goroutine.
type Worker struct {
	h      *Harness
	sc     *session.Context
	engine *interact.Engine
	logger *zap.Logger
}

func (w *Worker) ID() session.WorkerID { return w.sc.Worker() }

func (w *Worker) CreateSession(ctx context.Context, kind string) (*session.Session, error) {
	return w.h.factory.Create(ctx, w.sc, kind)
}

// CreateConfiguredSession creates a session of the configured browser kind.
func (w *Worker) CreateConfiguredSession(ctx context.Context) (*session.Session, error) {
	return w.CreateSession(ctx, w.h.cfg.Browser.Kind)
}

func (w *Worker) current() (*session.Session, error) {
	s, ok := w.sc.Session()
	if !ok {
		return nil, fmt.Errorf("worker %q: %w", w.sc.Worker(), session.ErrNoSession)
	}
	return s, nil
}

func (w *Worker) Navigate(ctx context.Context, url string) error {
	s, err := w.current()
	if err != nil {
		return err
	}
	w.logger.Debug("Navigating.", zap.String("url", url))
	return s.Driver.Navigate(ctx, url)
}

func (w *Worker) Refresh(ctx context.Context) error {
	s, err := w.current()
	if err != nil {
		return err
	}
	return s.Driver.Refresh(ctx)
}

func (w *Worker) Title(ctx context.Context) (string, error) {
	s, err := w.current()
	if err != nil {
		return "", err
	}
	return s.Driver.Title(ctx)
}

func (w *Worker) Interact() *interact.Engine { return w.engine }

func (w *Worker) Waits() (wait.Pair, bool) { return w.sc.Waits() }

func (w *Worker) HasSession() bool { return w.sc.HasSession() }

func (w *Worker) Screenshot(ctx context.Context) ([]byte, error) {
	s, err := w.current()
	if err != nil {
		return nil, err
	}
	return s.Driver.Screenshot(ctx)
}

// TeardownSession quits the worker's session. It is safe to call without one.
func (w *Worker) TeardownSession(ctx context.Context) error {
	return w.h.factory.Teardown(ctx, w.sc)
}

// RunScenario runs fn with a fresh session, tearing it down afterwards no
// matter how fn ends. Failed attempts are repeated, session setup included,
// for as long as the retry policy allows.
func (w *Worker) RunScenario(ctx context.Context, name string, fn Scenario) Result {
	res := Result{Name: name}
	state := w.h.policy.NewState()
	for {
		res.Attempts++
		res.Err = w.attempt(ctx, name, res.Attempts, fn, &res)
		if !state.Retry(retry.Outcome{Name: name, Success: res.Err == nil, Err: res.Err}) {
			return res
		}
		if ctx.Err() != nil {
			return res
		}
	}
}

func (w *Worker) attempt(ctx context.Context, name string, n int, fn Scenario, res *Result) (err error) {
	logger := w.logger.With(zap.String("test", name), zap.Int("attempt", n))
	logger.Info("START TEST CASE")
	started := time.Now()

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if terr := w.TeardownSession(cleanupCtx); terr != nil {
			logger.Warn("Teardown failed.", zap.Error(terr))
		}
		status := "PASSED"
		if err != nil {
			status = "FAILED"
		}
		logger.Info("END TEST CASE", zap.String("status", status), zap.Duration("duration", time.Since(started)), zap.Error(err))
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scenario panicked.", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrScenarioPanicked, r)
		}
		if err != nil && w.HasSession() {
			shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
			defer cancel()
			shot, serr := w.Screenshot(shotCtx)
			if serr != nil {
				logger.Warn("Failure screenshot could not be captured.", zap.Error(serr))
				return
			}
			res.Screenshots = append(res.Screenshots, shot)
		}
	}()

	if _, err := w.CreateConfiguredSession(ctx); err != nil {
		return err
	}
	return fn(ctx, w)
}
