// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/feedwalker/internal/browser"
)

// -- Page Mock --

// MockPage mocks the browser.Page interface.
type MockPage struct {
	mock.Mock
}

var _ browser.Page = (*MockPage)(nil)

func (m *MockPage) ID() string { return m.Called().String(0) }

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) WaitForElement(ctx context.Context, xpath string, timeout time.Duration) (browser.Element, error) {
	args := m.Called(ctx, xpath, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Element), args.Error(1)
}

func (m *MockPage) WaitForElements(ctx context.Context, xpath string, timeout time.Duration) ([]browser.Element, error) {
	args := m.Called(ctx, xpath, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]browser.Element), args.Error(1)
}

func (m *MockPage) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	args := m.Called(ctx, xpath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]browser.Element), args.Error(1)
}

func (m *MockPage) Back(ctx context.Context) error  { return m.Called(ctx).Error(0) }
func (m *MockPage) Close(ctx context.Context) error { return m.Called(ctx).Error(0) }

// -- Element Mock --

// MockElement mocks the browser.Element interface.
type MockElement struct {
	mock.Mock
}

var _ browser.Element = (*MockElement)(nil)

func (m *MockElement) Click(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockElement) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// Elements converts mock elements to the interface slice pages return.
func Elements(els ...*MockElement) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}
