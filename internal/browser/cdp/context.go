// internal/browser/cdp/context.go
package cdp

import (
	"context"
)

// actionContext scopes one protocol call. It derives from tab, which carries
// the chromedp target, and ends with caller's cause when caller ends first.
func actionContext(tab, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(tab)
	stop := context.AfterFunc(caller, func() {
		cancel(context.Cause(caller))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// callerErr prefers the caller's own error over the one chromedp reports
// after actionContext was torn down on the caller's behalf.
func callerErr(caller context.Context, err error) error {
	if err != nil && caller.Err() != nil {
		return caller.Err()
	}
	return err
}
