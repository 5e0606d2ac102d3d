// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/uiharness/internal/browser/driver"
)

// -- Launcher Mock --

// MockLauncher mocks the driver.Launcher interface.
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context, kind driver.Kind, opts driver.LaunchOptions) (driver.Driver, error) {
	args := m.Called(ctx, kind, opts)
	d, _ := args.Get(0).(driver.Driver)
	return d, args.Error(1)
}

// -- Driver Mock --

// MockDriver mocks the driver.Driver interface.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) Kind() driver.Kind {
	args := m.Called()
	return args.Get(0).(driver.Kind)
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) DeleteAllCookies(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) MaximizeWindow(ctx context.Context, viewport driver.Viewport) error {
	return m.Called(ctx, viewport).Error(0)
}

func (m *MockDriver) FindElement(ctx context.Context, q driver.Query) (driver.Element, error) {
	args := m.Called(ctx, q)
	el, _ := args.Get(0).(driver.Element)
	return el, args.Error(1)
}

func (m *MockDriver) FindElements(ctx context.Context, q driver.Query) ([]driver.Element, error) {
	args := m.Called(ctx, q)
	els, _ := args.Get(0).([]driver.Element)
	return els, args.Error(1)
}

func (m *MockDriver) SwitchToFrame(ctx context.Context, frame driver.Element) error {
	return m.Called(ctx, frame).Error(0)
}

func (m *MockDriver) SwitchToDefault(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) AlertText(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDriver) AcceptAlert(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockDriver) KeyChord(ctx context.Context, mod driver.Modifier, key string) error {
	return m.Called(ctx, mod, key).Error(0)
}

func (m *MockDriver) PressKeys(ctx context.Context, keys ...driver.Key) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockDriver) WindowHandles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockDriver) Quit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Element Mock --

// MockElement mocks the driver.Element interface.
type MockElement struct {
	mock.Mock
}

func (m *MockElement) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) ScriptClick(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) SendKeys(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) SelectByVisibleText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockElement) ScrollIntoView(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Hover(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// String is not recorded so it can be called freely from log statements.
func (m *MockElement) String() string {
	return "mock-element"
}
