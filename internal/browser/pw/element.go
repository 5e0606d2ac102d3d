// internal/browser/pw/element.go
package pw

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

const (
	jsScriptClick = `el => { el.click(); return true; }`
	jsAttribute   = `(el, name) => el.hasAttribute(name) ? [true, el.getAttribute(name)] : [false, '']`
	jsSelect      = `(el, text) => {
		for (const option of (el.options || [])) {
			if (option.text.trim() === text) {
				el.value = option.value;
				option.selected = true;
				el.dispatchEvent(new Event('input', {bubbles: true}));
				el.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	}`
)

type element struct {
	d      *Driver
	handle playwright.ElementHandle
	query  driver.Query
	frame  playwright.Frame
	index  int
}

var (
	_ driver.Element     = (*element)(nil)
	_ driver.Relocatable = (*element)(nil)
)

func (e *element) String() string { return e.query.String() }

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.String(), e.handle.Click())
}

func (e *element) ScriptClick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.handle.Evaluate(jsScriptClick)
	return classify(e.String(), err)
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.String(), e.handle.Fill(""))
}

func (e *element) SendKeys(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.String(), e.handle.Type(value))
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.handle.InnerText()
	return text, classify(e.String(), err)
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	res, err := e.handle.Evaluate(jsAttribute, name)
	if err != nil {
		return "", false, classify(e.String(), err)
	}
	pair, ok := res.([]interface{})
	if !ok || len(pair) != 2 {
		return "", false, fmt.Errorf("unexpected attribute result %T for %s", res, e)
	}
	present, _ := pair[0].(bool)
	value, _ := pair[1].(string)
	return value, present, nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	shown, err := e.handle.IsVisible()
	return shown, classify(e.String(), err)
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	enabled, err := e.handle.IsEnabled()
	return enabled, classify(e.String(), err)
}

func (e *element) SelectByVisibleText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := e.handle.Evaluate(jsSelect, text)
	if err != nil {
		return classify(e.String(), err)
	}
	if found, _ := res.(bool); !found {
		return &driver.OptionNotFoundError{Text: text, Control: e.String()}
	}
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.String(), e.handle.ScrollIntoViewIfNeeded())
}

func (e *element) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(e.String(), e.handle.Hover())
}

// Relocate looks the element up again and releases the handle it replaces.
func (e *element) Relocate(ctx context.Context) (driver.Element, error) {
	handles, err := e.d.lookup(ctx, e.query, e.frame)
	if err != nil {
		return nil, err
	}
	if e.index >= len(handles) {
		e.d.dispose(handles...)
		return nil, driver.NoSuchElement(e.query.String())
	}
	kept := handles[e.index]
	e.d.dispose(append(handles[:e.index:e.index], handles[e.index+1:]...)...)
	e.d.dispose(e.handle)
	return &element{d: e.d, handle: kept, query: e.query, frame: e.frame, index: e.index}, nil
}
