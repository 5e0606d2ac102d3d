// internal/interact/errors.go
package interact

import (
	"errors"
	"fmt"
)

// ErrInteractionFailed is matched by every InteractionError.
var ErrInteractionFailed = errors.New("interaction failed")

// InteractionError reports an operation whose native action and scripted
// fallback both failed. Both causes stay reachable through errors.Is/As.
type InteractionError struct {
	Op       string
	Target   string
	Native   error
	Fallback error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s on %s failed: native: %v; fallback: %v", e.Op, e.Target, e.Native, e.Fallback)
}

func (e *InteractionError) Is(target error) bool { return target == ErrInteractionFailed }

func (e *InteractionError) Unwrap() []error {
	var errs []error
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	if e.Native != nil {
		errs = append(errs, e.Native)
	}
	return errs
}
