// internal/interact/target.go
package interact

import (
	"context"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// Target is what an interaction acts on: an already resolved element, or a
// query that is looked up again on every use.
type Target struct {
	el    driver.Element
	query driver.Query
	byRef bool
}

// Ref targets an element the caller already holds.
func Ref(el driver.Element) Target { return Target{el: el, byRef: true} }

// ByQuery targets whatever q matches at the time of use. Results are never cached.
func ByQuery(q driver.Query) Target { return Target{query: q} }

func (t Target) String() string {
	if t.byRef {
		if t.el == nil {
			return "<nil element>"
		}
		return t.el.String()
	}
	return t.query.String()
}

// resolve returns the live element for the target.
func (t Target) resolve(ctx context.Context, d driver.Driver) (driver.Element, error) {
	if t.byRef {
		return t.el, nil
	}
	return d.FindElement(ctx, t.query)
}

// refresh produces the element the fallback strategy acts on. Queries are
// looked up again; references are relocated when the element supports it and
// kept as they are otherwise.
func (t Target) refresh(ctx context.Context, d driver.Driver, current driver.Element) (driver.Element, error) {
	if !t.byRef {
		return d.FindElement(ctx, t.query)
	}
	r, ok := current.(driver.Relocatable)
	if !ok {
		return current, nil
	}
	fresh, err := r.Relocate(ctx)
	if err != nil {
		return current, nil
	}
	return fresh, nil
}
