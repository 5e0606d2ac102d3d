// internal/retry/retry.go
package retry

import (
	"go.uber.org/zap"
)

// DefaultMaxRetryCount is used when the configuration does not set a limit.
const DefaultMaxRetryCount = 1

// Outcome is the result of one run of a test case.
type Outcome struct {
	Name    string
	Success bool
	Err     error
}

// ShouldRetry reports whether another run is allowed. attemptCount is the
// number of retries already granted for the test case.
func ShouldRetry(outcome Outcome, attemptCount, maxAttempts int) bool {
	return !outcome.Success && attemptCount < maxAttempts
}

// Recorder is told about every granted retry.
type Recorder interface {
	ScenarioRetried()
}

type nopRecorder struct{}

func (nopRecorder) ScenarioRetried() {}

// Policy holds the retry limit read from configuration at construction.
type Policy struct {
	maxRetryCount int
	logger        *zap.Logger
	recorder      Recorder
}

type Option func(*Policy)

func WithLogger(l *zap.Logger) Option {
	return func(p *Policy) { p.logger = l.Named("retry") }
}

func WithRecorder(r Recorder) Option {
	return func(p *Policy) { p.recorder = r }
}

// NewPolicy builds a policy allowing up to maxRetryCount retries per test case.
// Negative values are treated as zero.
func NewPolicy(maxRetryCount int, opts ...Option) *Policy {
	if maxRetryCount < 0 {
		maxRetryCount = 0
	}
	p := &Policy{maxRetryCount: maxRetryCount, logger: zap.NewNop(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) MaxRetryCount() int { return p.maxRetryCount }

// NewState starts the retry bookkeeping for one test case.
func (p *Policy) NewState() *State {
	return &State{MaxAttempts: p.maxRetryCount, policy: p}
}

// State is the retry bookkeeping of one test case. It is not shared between test cases.
type State struct {
	AttemptCount int
	MaxAttempts  int
	policy       *Policy
}

// Retry decides whether the test case runs again after outcome, and counts the
// retry when it is granted.
func (s *State) Retry(outcome Outcome) bool {
	if outcome.Success {
		return false
	}
	if !ShouldRetry(outcome, s.AttemptCount, s.MaxAttempts) {
		s.policy.logger.Warn("Maximum retry attempts reached, marking as failed.",
			zap.String("test", outcome.Name),
			zap.Int("max_retry_count", s.MaxAttempts),
			zap.Error(outcome.Err))
		return false
	}
	s.AttemptCount++
	s.policy.recorder.ScenarioRetried()
	s.policy.logger.Info("Retrying test.",
		zap.String("test", outcome.Name),
		zap.Int("attempt", s.AttemptCount),
		zap.Int("max_retry_count", s.MaxAttempts),
		zap.Error(outcome.Err))
	return true
}
