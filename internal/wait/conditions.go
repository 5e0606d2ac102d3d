// internal/wait/conditions.go
package wait

import (
	"context"
	"strings"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// ConditionKind names what a wait is waiting for. It is reported in timeouts and metrics.
type ConditionKind string

const (
	KindClickable      ConditionKind = "clickable"
	KindVisible        ConditionKind = "visible"
	KindVisibleLocated ConditionKind = "visible_located"
	KindInvisible      ConditionKind = "invisible"
	KindAllVisible     ConditionKind = "all_visible"
	KindAlertPresent   ConditionKind = "alert_present"
	KindFrameAvailable ConditionKind = "frame_available"
	KindCustom         ConditionKind = "custom"
)

// Condition is a single check evaluated repeatedly by a wait.
type Condition struct {
	Kind    ConditionKind
	Subject string
	Check   func(ctx context.Context) (bool, error)
}

// Func builds a custom condition.
func Func(subject string, check func(ctx context.Context) (bool, error)) Condition {
	return Condition{Kind: KindCustom, Subject: subject, Check: check}
}

// Clickable holds once the element is both displayed and enabled.
func Clickable(el driver.Element) Condition {
	return Condition{
		Kind:    KindClickable,
		Subject: el.String(),
		Check: func(ctx context.Context) (bool, error) {
			shown, err := el.IsDisplayed(ctx)
			if err != nil || !shown {
				return false, err
			}
			return el.IsEnabled(ctx)
		},
	}
}

// Visible holds once the element is displayed.
func Visible(el driver.Element) Condition {
	return Condition{
		Kind:    KindVisible,
		Subject: el.String(),
		Check:   el.IsDisplayed,
	}
}

// VisibleLocated looks the query up on every check. An empty result is
// reported as not yet visible rather than as an error.
func VisibleLocated(d driver.Driver, q driver.Query) Condition {
	return Condition{
		Kind:    KindVisibleLocated,
		Subject: q.String(),
		Check: func(ctx context.Context) (bool, error) {
			els, err := d.FindElements(ctx, q)
			if err != nil || len(els) == 0 {
				return false, err
			}
			return els[0].IsDisplayed(ctx)
		},
	}
}

// Invisible holds once the element is hidden or has left the document.
func Invisible(el driver.Element) Condition {
	return Condition{
		Kind:    KindInvisible,
		Subject: el.String(),
		Check: func(ctx context.Context) (bool, error) {
			shown, err := el.IsDisplayed(ctx)
			if driver.IsTransient(err) {
				return true, nil
			}
			if err != nil {
				return false, err
			}
			return !shown, nil
		},
	}
}

// AllVisible holds once every element is displayed.
func AllVisible(els ...driver.Element) Condition {
	names := make([]string, 0, len(els))
	for _, el := range els {
		names = append(names, el.String())
	}
	return Condition{
		Kind:    KindAllVisible,
		Subject: strings.Join(names, ", "),
		Check: func(ctx context.Context) (bool, error) {
			for _, el := range els {
				shown, err := el.IsDisplayed(ctx)
				if err != nil || !shown {
					return false, err
				}
			}
			return true, nil
		},
	}
}

// AlertPresent holds while a JavaScript dialog is open.
func AlertPresent(d driver.Driver) Condition {
	return Condition{
		Kind:    KindAlertPresent,
		Subject: "alert",
		Check: func(ctx context.Context) (bool, error) {
			_, open, err := d.AlertText(ctx)
			return open, err
		},
	}
}

// FrameAvailable switches into the frame as soon as it can be entered.
// A frame whose element is missing or stale counts as not yet available.
func FrameAvailable(d driver.Driver, frame driver.Element) Condition {
	return Condition{
		Kind:    KindFrameAvailable,
		Subject: frame.String(),
		Check: func(ctx context.Context) (bool, error) {
			err := d.SwitchToFrame(ctx, frame)
			if driver.IsTransient(err) {
				return false, nil
			}
			return err == nil, err
		},
	}
}
