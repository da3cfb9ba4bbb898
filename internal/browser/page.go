package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// chromePage implements Page on top of a chromedp tab context.
type chromePage struct {
	id            string
	logger        *zap.Logger
	ctx           context.Context
	cancelTab     context.CancelFunc
	cancelAlloc   context.CancelFunc
	actionTimeout time.Duration
}

var (
	_ Page    = (*chromePage)(nil)
	_ Element = (*chromeElement)(nil)
)

func (p *chromePage) ID() string { return p.id }

// scope derives a context carrying the tab (so chromedp can find it) that is
// also cancelled when the caller's ctx is done or the timeout elapses.
func (p *chromePage) scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := p.scope(ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitForElement(ctx context.Context, xpath string, timeout time.Duration) (Element, error) {
	elements, err := p.wait(ctx, xpath, timeout)
	if err != nil {
		return nil, err
	}
	return elements[0], nil
}

func (p *chromePage) WaitForElements(ctx context.Context, xpath string, timeout time.Duration) ([]Element, error) {
	return p.wait(ctx, xpath, timeout)
}

// wait polls until at least one node matches xpath.
func (p *chromePage) wait(ctx context.Context, xpath string, timeout time.Duration) ([]Element, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, timeout, chromedp.Nodes(xpath, &nodes, chromedp.BySearch))
	switch {
	case err == nil && len(nodes) > 0:
		return p.wrap(nodes), nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err == nil, errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s (waited %s)", ErrElementNotFound, xpath, timeout)
	default:
		return nil, fmt.Errorf("query %s: %w", xpath, err)
	}
}

func (p *chromePage) FindElements(ctx context.Context, xpath string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, p.actionTimeout, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", xpath, err)
	}
	return p.wrap(nodes), nil
}

func (p *chromePage) Back(ctx context.Context) error {
	if err := p.run(ctx, p.actionTimeout, chromedp.NavigateBack()); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

// MoveMouse lets the pacer drift the cursor during pauses.
func (p *chromePage) MoveMouse(ctx context.Context, x, y float64) error {
	return p.run(ctx, p.actionTimeout, chromedp.MouseEvent(input.MouseMoved, x, y))
}

// Close shuts the browser down gracefully, then releases the allocator.
func (p *chromePage) Close(ctx context.Context) error {
	defer p.cancelAlloc()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(p.ctx) }()

	select {
	case err := <-done:
		p.cancelTab()
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("close browser: %w", err)
		}
		p.logger.Info("Browser closed")
		return nil
	case <-ctx.Done():
		p.cancelTab()
		return ctx.Err()
	}
}

func (p *chromePage) wrap(nodes []*cdp.Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromeElement{page: p, node: n})
	}
	return out
}

// chromeElement is a DOM node addressed by its node ID.
type chromeElement struct {
	page *chromePage
	node *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID { return []cdp.NodeID{e.node.NodeID} }

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.page.run(ctx, e.page.actionTimeout, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click <%s>: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *chromeElement) SendKeys(ctx context.Context, text string) error {
	if err := e.page.run(ctx, e.page.actionTimeout, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("send keys to <%s>: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *chromeElement) Clear(ctx context.Context) error {
	if err := e.page.run(ctx, e.page.actionTimeout, chromedp.Clear(e.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("clear <%s>: %w", e.node.LocalName, err)
	}
	return nil
}

// IsDisplayed reports whether the node has a rendered box. Nodes hidden with
// display:none or detached from the layout have none.
func (e *chromeElement) IsDisplayed(ctx context.Context) (bool, error) {
	var model *dom.BoxModel
	err := e.page.run(ctx, e.page.actionTimeout, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		model, err = dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(c)
		return err
	}))
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		if isUnrendered(err) {
			return false, nil
		}
		return false, fmt.Errorf("box model of <%s>: %w", e.node.LocalName, err)
	}
	return model != nil && model.Width > 0 && model.Height > 0, nil
}

// isUnrendered matches the protocol error CDP returns for a node without a
// layout box.
func isUnrendered(err error) bool {
	var cdpErr *cdproto.Error
	return errors.As(err, &cdpErr) && strings.Contains(cdpErr.Message, "Could not compute box model")
}
