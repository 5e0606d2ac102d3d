// internal/browser/driver/errors.go
package driver

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is matched by UnsupportedKindError.
	ErrUnsupportedKind = errors.New("unsupported browser kind")
	// ErrNoSuchElement tags a lookup that matched nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement tags an operation on a node that left the document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrOptionNotFound is matched by OptionNotFoundError.
	ErrOptionNotFound = errors.New("option not found")
)

// UnsupportedKindError reports a browser name outside the supported set.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported browser kind %q (supported: chrome, firefox, safari, edge)", e.Kind)
}

func (e *UnsupportedKindError) Is(target error) bool { return target == ErrUnsupportedKind }

// TransientError is the tagged variant for element-not-found and stale-element
// conditions. Polling waits retry on it; everything else is fatal.
type TransientError struct {
	// Reason is ErrNoSuchElement or ErrStaleElement.
	Reason error
	// Subject describes the query or element involved.
	Subject string
	// Err is the backend error, if there was one.
	Err error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Reason, e.Subject, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Reason, e.Subject)
}

func (e *TransientError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Reason, e.Err}
	}
	return []error{e.Reason}
}

// NoSuchElement builds the transient error for an empty lookup.
func NoSuchElement(subject string) error {
	return &TransientError{Reason: ErrNoSuchElement, Subject: subject}
}

// Stale builds the transient error for a detached node.
func Stale(subject string, cause error) error {
	return &TransientError{Reason: ErrStaleElement, Subject: subject, Err: cause}
}

// IsTransient reports whether err carries the TransientError tag.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// OptionNotFoundError reports a select whose options did not match the requested text.
type OptionNotFoundError struct {
	Text    string
	Control string
}

func (e *OptionNotFoundError) Error() string {
	return fmt.Sprintf("no option with visible text %q in %s", e.Text, e.Control)
}

func (e *OptionNotFoundError) Is(target error) bool { return target == ErrOptionNotFound }
