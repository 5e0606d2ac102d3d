// internal/wait/wait.go
package wait

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

const (
	DefaultBoundedTimeout  = 15 * time.Second
	DefaultBoundedGrain    = 500 * time.Millisecond
	DefaultPollingTimeout  = 15 * time.Second
	DefaultPollingInterval = 500 * time.Millisecond
)

// Config holds the timings for both wait strategies. Zero values fall back to the defaults.
type Config struct {
	BoundedTimeout  time.Duration `mapstructure:"bounded_timeout" yaml:"bounded_timeout"`
	BoundedGrain    time.Duration `mapstructure:"bounded_grain" yaml:"bounded_grain"`
	PollingTimeout  time.Duration `mapstructure:"polling_timeout" yaml:"polling_timeout"`
	PollingInterval time.Duration `mapstructure:"polling_interval" yaml:"polling_interval"`
}

// TimeoutHook is told about every condition that timed out.
type TimeoutHook func(kind ConditionKind)

type options struct {
	logger    *zap.Logger
	onTimeout TimeoutHook
	ignore    func(error) bool
}

// Option configures the waits built by NewPair.
type Option func(*options)

// WithLogger sets the logger used by both waits.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeoutHook registers a callback fired on every wait timeout.
func WithTimeoutHook(h TimeoutHook) Option {
	return func(o *options) { o.onTimeout = h }
}

// WithIgnore replaces the polling wait's transient-error predicate.
func WithIgnore(ignore func(error) bool) Option {
	return func(o *options) { o.ignore = ignore }
}

// Pair is the bounded and polling wait belonging to exactly one session.
type Pair struct {
	Bounded *Bounded
	Polling *Polling
}

// SessionID reports the session both waits were built for.
func (p Pair) SessionID() string {
	if p.Bounded == nil {
		return ""
	}
	return p.Bounded.sessionID
}

// NewPair builds a fresh pair of waits for the given session.
func NewPair(sessionID string, cfg Config, opts ...Option) Pair {
	o := options{logger: zap.NewNop(), ignore: driver.IsTransient}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.BoundedTimeout <= 0 {
		cfg.BoundedTimeout = DefaultBoundedTimeout
	}
	if cfg.BoundedGrain <= 0 {
		cfg.BoundedGrain = DefaultBoundedGrain
	}
	if cfg.PollingTimeout <= 0 {
		cfg.PollingTimeout = DefaultPollingTimeout
	}
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = DefaultPollingInterval
	}
	logger := o.logger.With(zap.String("session_id", sessionID))
	return Pair{
		Bounded: &Bounded{
			sessionID: sessionID,
			Timeout:   cfg.BoundedTimeout,
			Grain:     cfg.BoundedGrain,
			logger:    logger.Named("bounded_wait"),
			onTimeout: o.onTimeout,
		},
		Polling: &Polling{
			sessionID: sessionID,
			Timeout:   cfg.PollingTimeout,
			Interval:  cfg.PollingInterval,
			Ignore:    o.ignore,
			logger:    logger.Named("polling_wait"),
			onTimeout: o.onTimeout,
		},
	}
}

// Bounded waits for a single condition with one timeout. Any error raised by
// the condition ends the wait immediately.
type Bounded struct {
	sessionID string
	Timeout   time.Duration
	Grain     time.Duration
	logger    *zap.Logger
	onTimeout TimeoutHook
}

// Until blocks until cond holds, the timeout elapses, or ctx is done.
func (b *Bounded) Until(ctx context.Context, cond Condition) error {
	return run(ctx, cond, b.Timeout, b.Grain, nil, b.logger, b.onTimeout)
}

// Polling re-evaluates a condition on a fixed interval and absorbs the errors
// matched by Ignore until the timeout elapses.
type Polling struct {
	sessionID string
	Timeout   time.Duration
	Interval  time.Duration
	Ignore    func(error) bool
	logger    *zap.Logger
	onTimeout TimeoutHook
}

// Until blocks until cond holds, the timeout elapses, or ctx is done.
func (p *Polling) Until(ctx context.Context, cond Condition) error {
	return run(ctx, cond, p.Timeout, p.Interval, p.Ignore, p.logger, p.onTimeout)
}

// run is the shared poll loop. The condition is checked once immediately and
// then once per interval. Every check runs under the wait's own deadline, so a
// check that blocks is cut off when the timeout elapses. Only the caller's ctx
// ending yields ctx.Err(); the wait's deadline always yields a TimeoutError.
func run(ctx context.Context, cond Condition, timeout, interval time.Duration, ignore func(error) bool, logger *zap.Logger, hook TimeoutHook) error {
	start := time.Now()
	checkCtx, cancel := context.WithDeadline(ctx, start.Add(timeout))
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	timedOut := func() error {
		elapsed := time.Since(start)
		logger.Debug("Wait timed out.",
			zap.String("condition", string(cond.Kind)),
			zap.String("subject", cond.Subject),
			zap.Duration("elapsed", elapsed),
			zap.NamedError("last_error", lastErr))
		if hook != nil {
			hook(cond.Kind)
		}
		return &TimeoutError{Condition: cond.Kind, Subject: cond.Subject, Elapsed: elapsed, LastErr: lastErr}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := cond.Check(checkCtx)
		if err == nil && ok {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if checkCtx.Err() != nil {
			// The check was cut off by the deadline; its error says nothing about the condition.
			return timedOut()
		}
		switch {
		case err != nil && ignore != nil && ignore(err):
			lastErr = err
		case err != nil:
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-checkCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return timedOut()
		case <-ticker.C:
		}
	}
}
