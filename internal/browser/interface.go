package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp/kb"
)

// Special keys understood by Element.SendKeys.
const (
	KeyEscape = kb.Escape
	KeyEnter  = kb.Enter
)

// Page is one running browser instance showing one tab. Locators are XPath
// expressions.
type Page interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	// WaitForElement blocks until xpath matches or timeout elapses, in which
	// case the error wraps ErrElementNotFound.
	WaitForElement(ctx context.Context, xpath string, timeout time.Duration) (Element, error)
	// WaitForElements is WaitForElement for every match.
	WaitForElements(ctx context.Context, xpath string, timeout time.Duration) ([]Element, error)
	// FindElements returns the current matches without waiting; none is not an error.
	FindElements(ctx context.Context, xpath string) ([]Element, error)
	Back(ctx context.Context) error
	// Close terminates the browser instance.
	Close(ctx context.Context) error
}

// Element is a node on the current page.
type Element interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	IsDisplayed(ctx context.Context) (bool, error)
}
