// internal/session/factory.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
	"github.com/xkilldash9x/uiharness/internal/wait"
)

// quitTimeout bounds the cleanup of a native session whose setup failed.
const quitTimeout = 10 * time.Second

// Recorder receives session lifecycle events.
type Recorder interface {
	SessionCreated(kind string)
	SessionClosed()
}

type nopRecorder struct{}

func (nopRecorder) SessionCreated(string) {}
func (nopRecorder) SessionClosed()        {}

// Factory creates native sessions, applies the baseline configuration and
// registers them together with a freshly built wait pair.
type Factory struct {
	launcher driver.Launcher
	launch   driver.LaunchOptions
	waits    wait.Config
	waitOpts []wait.Option
	logger   *zap.Logger
	recorder Recorder
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRecorder sets the sink for session lifecycle metrics.
func WithRecorder(r Recorder) FactoryOption {
	return func(f *Factory) { f.recorder = r }
}

// WithWaitOptions passes options to every wait pair the factory builds.
func WithWaitOptions(opts ...wait.Option) FactoryOption {
	return func(f *Factory) { f.waitOpts = append(f.waitOpts, opts...) }
}

func NewFactory(launcher driver.Launcher, launch driver.LaunchOptions, waits wait.Config, logger *zap.Logger, opts ...FactoryOption) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		launcher: launcher,
		launch:   launch,
		waits:    waits,
		logger:   logger.Named("session_factory"),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.waitOpts = append([]wait.Option{wait.WithLogger(logger)}, f.waitOpts...)
	return f
}

// LaunchOptions returns the baseline options applied to every new session.
func (f *Factory) LaunchOptions() driver.LaunchOptions { return f.launch }

// Create returns the worker's session, creating it if the worker has none.
// The kind is validated before anything else happens.
func (f *Factory) Create(ctx context.Context, sc *Context, rawKind string) (*Session, error) {
	kind, err := driver.ParseKind(rawKind)
	if err != nil {
		return nil, err
	}
	if s, ok := sc.Session(); ok {
		f.logger.Debug("Reusing live session.", zap.String("worker", string(sc.worker)), zap.String("session_id", s.ID))
		return s, nil
	}

	for {
		ran := false
		v, err, shared := sc.registry.creating.Do(string(sc.worker), func() (any, error) {
			ran = true
			if s, ok := sc.Session(); ok {
				return s, nil
			}
			return f.create(ctx, sc, kind)
		})
		if err != nil {
			// The creation we joined ran on another caller's context. When only
			// that context ended, start over on ours.
			if !ran && ctx.Err() == nil && isContextErr(err) {
				f.logger.Debug("Joined session creation was canceled, retrying.", zap.String("worker", string(sc.worker)))
				continue
			}
			return nil, err
		}
		s := v.(*Session)
		if shared {
			f.logger.Debug("Joined in-flight session creation.", zap.String("worker", string(sc.worker)), zap.String("session_id", s.ID))
		}
		return s, nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (f *Factory) create(ctx context.Context, sc *Context, kind driver.Kind) (*Session, error) {
	logger := f.logger.With(zap.String("worker", string(sc.worker)), zap.String("kind", string(kind)))
	logger.Debug("Launching native session.")

	launchCtx := ctx
	if f.launch.LaunchTimeout > 0 {
		var cancel context.CancelFunc
		launchCtx, cancel = context.WithTimeout(ctx, f.launch.LaunchTimeout)
		defer cancel()
	}
	d, err := f.launcher.Launch(launchCtx, kind, f.launch)
	if err != nil {
		return nil, &InitError{Kind: kind, Worker: sc.worker, Stage: "launch", Err: err}
	}

	if err := f.applyBaseline(ctx, d); err != nil {
		f.quit(d, logger)
		return nil, &InitError{Kind: kind, Worker: sc.worker, Stage: "baseline", Err: err}
	}

	s := &Session{
		ID:        uuid.NewString(),
		Worker:    sc.worker,
		Kind:      kind,
		Driver:    d,
		CreatedAt: time.Now(),
	}
	waits := wait.NewPair(s.ID, f.waits, f.waitOpts...)
	if err := sc.registry.Put(sc.worker, s, waits); err != nil {
		f.quit(d, logger)
		return nil, &InitError{Kind: kind, Worker: sc.worker, Stage: "register", Err: err}
	}

	f.recorder.SessionCreated(string(kind))
	logger.Info("Browser session created.", zap.String("session_id", s.ID))
	return s, nil
}

// applyBaseline clears cookies and sizes the window before the session is handed out.
func (f *Factory) applyBaseline(ctx context.Context, d driver.Driver) error {
	if err := d.DeleteAllCookies(ctx); err != nil {
		return fmt.Errorf("clearing cookies: %w", err)
	}
	if err := d.MaximizeWindow(ctx, f.launch.Viewport); err != nil {
		return fmt.Errorf("maximizing window: %w", err)
	}
	return nil
}

func (f *Factory) quit(d driver.Driver, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()
	if err := d.Quit(ctx); err != nil {
		logger.Warn("Failed to quit native session after setup failure.", zap.Error(err))
	}
}

// Teardown quits the worker's session and removes its entry. It is a no-op when
// the worker has no session.
func (f *Factory) Teardown(ctx context.Context, sc *Context) error {
	entry, ok := sc.registry.Remove(sc.worker)
	if !ok {
		return nil
	}
	f.recorder.SessionClosed()
	logger := f.logger.With(zap.String("worker", string(sc.worker)), zap.String("session_id", entry.Session.ID))
	if err := entry.Session.Driver.Quit(ctx); err != nil {
		logger.Warn("Native session did not quit cleanly.", zap.Error(err))
		return fmt.Errorf("quitting session %s: %w", entry.Session.ID, err)
	}
	logger.Info("Browser session closed.")
	return nil
}

// Shutdown tears down every registered session concurrently.
func (f *Factory) Shutdown(ctx context.Context, registry *Registry) error {
	workers := registry.Workers()
	if len(workers) == 0 {
		return nil
	}
	f.logger.Info("Shutting down remaining sessions.", zap.Int("count", len(workers)))
	// a failed quit must not cancel the others
	var g errgroup.Group
	for _, w := range workers {
		sc := NewContext(w, registry)
		g.Go(func() error { return f.Teardown(ctx, sc) })
	}
	return g.Wait()
}
