// internal/session/errors.go
package session

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

var (
	// ErrInitialization is matched by every InitError.
	ErrInitialization = errors.New("session initialization failed")
	// ErrNoSession is returned when an operation needs the worker's session and there is none.
	ErrNoSession = errors.New("worker has no live session")
)

// InitError reports that a native session could not be brought up. No registry
// entry exists for the worker when it is returned.
type InitError struct {
	Kind   driver.Kind
	Worker WorkerID
	// Stage is "launch", "baseline" or "register".
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s session for worker %q failed at %s: %v", e.Kind, e.Worker, e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

func (e *InitError) Is(target error) bool { return target == ErrInitialization }
