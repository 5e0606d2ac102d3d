// internal/mocks/mocks_test.go
package mocks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
	"github.com/xkilldash9x/uiharness/internal/mocks"
)

var (
	_ driver.Driver      = (*mocks.MockDriver)(nil)
	_ driver.Driver      = (*mocks.FakeDriver)(nil)
	_ driver.Element     = (*mocks.MockElement)(nil)
	_ driver.Element     = (*mocks.FakeElement)(nil)
	_ driver.Relocatable = (*mocks.FakeElement)(nil)
	_ driver.Launcher    = (*mocks.MockLauncher)(nil)
	_ driver.Launcher    = (*mocks.FakeLauncher)(nil)
)

func TestFakeDriver_FindQueuesErrorsFirst(t *testing.T) {
	ctx := context.Background()
	d := mocks.NewFakeDriver(driver.Chrome)
	q := driver.CSS("#save")
	el := mocks.NewFakeElement("save")
	d.Add(q, el)
	d.FailFind(q, driver.Stale(q.String(), nil))

	_, err := d.FindElement(ctx, q)
	assert.ErrorIs(t, err, driver.ErrStaleElement)

	got, err := d.FindElement(ctx, q)
	require.NoError(t, err)
	assert.Same(t, el, got)

	_, err = d.FindElement(ctx, driver.CSS("#missing"))
	assert.ErrorIs(t, err, driver.ErrNoSuchElement)
}

func TestFakeElement_ContentAndSelect(t *testing.T) {
	ctx := context.Background()
	el := mocks.NewFakeElement("email")
	el.Value = "stale"
	require.NoError(t, el.Clear(ctx))
	require.NoError(t, el.SendKeys(ctx, "a@b.c"))
	assert.Equal(t, "a@b.c", el.Content())

	el.Options = []string{" Visa ", "Mastercard"}
	require.NoError(t, el.SelectByVisibleText(ctx, "Visa"))
	assert.Equal(t, " Visa ", el.Selected)
	assert.ErrorIs(t, el.SelectByVisibleText(ctx, "Amex"), driver.ErrOptionNotFound)
	assert.Equal(t, []string{"clear", "send_keys", "select", "select"}, el.Calls())
}

func TestFakeLauncher_CountsFailures(t *testing.T) {
	l := &mocks.FakeLauncher{Err: errors.New("no browser")}
	_, err := l.Launch(context.Background(), driver.Firefox, driver.LaunchOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, l.Launches())
	assert.Empty(t, l.Drivers())
}
