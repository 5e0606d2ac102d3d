// internal/interact/chain.go
package interact

import (
	"context"

	"go.uber.org/zap"
)

const (
	StrategyNative   = "native"
	StrategyScripted = "scripted"
)

// Attempt records one strategy invocation. Err is nil for the one that succeeded.
type Attempt struct {
	Op       string
	Strategy string
	Err      error
}

// Strategy is one way of carrying out an operation.
type Strategy struct {
	Name string
	Do   func(ctx context.Context) error
}

// chain tries strategies in order until one succeeds. It returns every error
// it saw, in order, and whether any strategy succeeded.
type chain struct {
	op      string
	target  string
	logger  *zap.Logger
	observe func(Attempt)
}

func (c chain) run(ctx context.Context, strategies ...Strategy) ([]error, bool) {
	var errs []error
	for i, s := range strategies {
		err := s.Do(ctx)
		c.observe(Attempt{Op: c.op, Strategy: s.Name, Err: err})
		if err == nil {
			return errs, true
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			if i < len(strategies)-1 {
				errs = append(errs, ctx.Err())
			}
			break
		}
		if i < len(strategies)-1 {
			c.logger.Warn("Strategy failed, falling back.",
				zap.String("op", c.op),
				zap.String("target", c.target),
				zap.String("strategy", s.Name),
				zap.String("next", strategies[i+1].Name),
				zap.Error(err))
		}
	}
	return errs, false
}
