// internal/browser/cdp/element.go
package cdp

import (
	"context"
	"fmt"

	proto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

const (
	jsClick     = `function() { this.click(); return true; }`
	jsEnabled   = `function() { return !this.disabled; }`
	jsDisplayed = `function() {
		const rect = this.getBoundingClientRect();
		const style = window.getComputedStyle(this);
		return rect.width > 0 && rect.height > 0 && style.display !== 'none' && style.visibility !== 'hidden';
	}`
	jsText = `function() {
		const text = this.innerText !== undefined ? this.innerText : this.textContent;
		return text || '';
	}`
	jsAttribute = `function(name) {
		if (!this.hasAttribute(name)) { return {present: false, value: ''}; }
		return {present: true, value: this.getAttribute(name)};
	}`
	jsClear = `function() {
		if ('value' in this) { this.value = ''; } else if (this.isContentEditable) { this.textContent = ''; }
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}`
	jsSelect = `function(text) {
		for (const option of (this.options || [])) {
			if (option.text.trim() === text) {
				this.value = option.value;
				option.selected = true;
				this.dispatchEvent(new Event('input', {bubbles: true}));
				this.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	}`
)

type attributeResult struct {
	Present bool   `json:"present"`
	Value   string `json:"value"`
}

// element is a node found through a query. It remembers the query, the frame
// scope and its position so it can be looked up again after a re-render.
type element struct {
	d     *Driver
	node  *proto.Node
	query driver.Query
	scope *proto.Node
	index int
}

var (
	_ driver.Element     = (*element)(nil)
	_ driver.Relocatable = (*element)(nil)
)

func (e *element) String() string {
	if e.query.Value != "" {
		return e.query.String()
	}
	return fmt.Sprintf("node#%d", e.node.NodeID)
}

// resolve turns the node into a remote object so functions can run with it as this.
func (e *element) resolve(c context.Context) (*runtime.RemoteObject, error) {
	params := dom.ResolveNode()
	if e.node.BackendNodeID != 0 {
		params = params.WithBackendNodeID(e.node.BackendNodeID)
	} else {
		params = params.WithNodeID(e.node.NodeID)
	}
	return params.Do(c)
}

// call runs the function declaration fn with the element bound to this and
// decodes its return value into res.
func (e *element) call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	err := e.d.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		obj, err := e.resolve(c)
		if err != nil {
			return err
		}
		// Releasing fails once the page has navigated away, which is fine.
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(c) }()
		return chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}, args...).Do(c)
	}))
	return classify(e.String(), err)
}

func (e *element) Click(ctx context.Context) error {
	err := e.d.run(ctx,
		dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID),
		chromedp.MouseClickNode(e.node),
	)
	return classify(e.String(), err)
}

func (e *element) ScriptClick(ctx context.Context) error {
	var ok bool
	return e.call(ctx, jsClick, &ok)
}

func (e *element) Clear(ctx context.Context) error {
	var ok bool
	return e.call(ctx, jsClear, &ok)
}

func (e *element) SendKeys(ctx context.Context, value string) error {
	err := e.d.run(ctx, chromedp.SendKeys([]proto.NodeID{e.node.NodeID}, value, chromedp.ByNodeID))
	return classify(e.String(), err)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, jsText, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res attributeResult
	if err := e.call(ctx, jsAttribute, &res, name); err != nil {
		return "", false, err
	}
	return res.Value, res.Present, nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	var shown bool
	if err := e.call(ctx, jsDisplayed, &shown); err != nil {
		return false, err
	}
	return shown, nil
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	if err := e.call(ctx, jsEnabled, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

func (e *element) SelectByVisibleText(ctx context.Context, text string) error {
	var found bool
	if err := e.call(ctx, jsSelect, &found, text); err != nil {
		return err
	}
	if !found {
		return &driver.OptionNotFoundError{Text: text, Control: e.String()}
	}
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	err := e.d.run(ctx, dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID))
	return classify(e.String(), err)
}

// Hover scrolls the node into view and moves the mouse to the center of its content box.
func (e *element) Hover(ctx context.Context) error {
	err := e.d.run(ctx,
		dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID),
		chromedp.ActionFunc(func(c context.Context) error {
			box, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(c)
			if err != nil {
				return err
			}
			x, y := center(box.Content)
			return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(c)
		}),
	)
	return classify(e.String(), err)
}

// center averages the four corners of a quad.
func center(q dom.Quad) (float64, float64) {
	var x, y float64
	n := len(q) / 2
	if n == 0 {
		return 0, 0
	}
	for i := 0; i < n; i++ {
		x += q[2*i]
		y += q[2*i+1]
	}
	return x / float64(n), y / float64(n)
}

// Relocate runs the original query again in the original frame and returns
// the node at the same position.
func (e *element) Relocate(ctx context.Context) (driver.Element, error) {
	if e.query.Value == "" {
		return e, nil
	}
	nodes, err := e.d.lookup(ctx, e.query, e.scope)
	if err != nil {
		return nil, err
	}
	if e.index >= len(nodes) {
		return nil, driver.NoSuchElement(e.query.String())
	}
	return &element{d: e.d, node: nodes[e.index], query: e.query, scope: e.scope, index: e.index}, nil
}
