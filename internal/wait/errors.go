// internal/wait/errors.go
package wait

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every TimeoutError.
var ErrTimeout = errors.New("wait timed out")

// TimeoutError reports a condition that did not hold within the wait's timeout.
// For polling waits LastErr holds the most recent transient failure that was absorbed.
// LastErr is informational only and is not part of the unwrap chain, so a
// timed-out wait never matches the transient sentinels.
type TimeoutError struct {
	Condition ConditionKind
	Subject   string
	Elapsed   time.Duration
	LastErr   error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Elapsed.Round(time.Millisecond), e.Condition)
	if e.Subject != "" {
		msg += " (" + e.Subject + ")"
	}
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
