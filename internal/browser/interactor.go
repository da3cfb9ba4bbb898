package browser

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/xkilldash9x/feedwalker/internal/humanoid"
)

// DefaultMaxClickAttempts bounds ClickRandom when no limit is configured.
const DefaultMaxClickAttempts = 10

// linkXPath matches every hyperlink-bearing element.
const linkXPath = "//a[@href]"

// Interactor implements the element primitives the action handlers build on:
// discovering clickable links and clicking one with bounded retries.
type Interactor struct {
	logger      *zap.Logger
	pacer       *humanoid.Pacer
	rng         *rand.Rand
	maxAttempts int
	linkXPath   string
}

// InteractorOption customizes an Interactor.
type InteractorOption func(*Interactor)

// WithMaxAttempts sets how many failed clicks ClickRandom tolerates.
func WithMaxAttempts(n int) InteractorOption {
	return func(i *Interactor) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithLinkXPath overrides the locator used by DiscoverClickable.
func WithLinkXPath(xpath string) InteractorOption {
	return func(i *Interactor) {
		if xpath != "" {
			i.linkXPath = xpath
		}
	}
}

// NewInteractor creates a new interactor. It draws from the pacer's random
// source so one seed reproduces a whole run.
func NewInteractor(logger *zap.Logger, pacer *humanoid.Pacer, opts ...InteractorOption) *Interactor {
	i := &Interactor{
		logger:      logger.Named("interactor"),
		pacer:       pacer,
		rng:         pacer.Rand(),
		maxAttempts: DefaultMaxClickAttempts,
		linkXPath:   linkXPath,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ClickRandom clicks a uniformly chosen element, choosing again after every
// failure. It returns the number of attempts made and wraps
// ErrRetryExhausted once maxAttempts consecutive clicks have failed.
func (i *Interactor) ClickRandom(ctx context.Context, elements []Element) (int, error) {
	if len(elements) == 0 {
		return 0, ErrNoElementsFound
	}

	var lastErr error
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		el := elements[i.rng.Intn(len(elements))]
		err := el.Click(ctx)
		if err == nil {
			i.logger.Info("Clicked on link successfully", zap.Int("attempt", attempt))
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		lastErr = err
		i.logger.Info("Error clicking on link, trying another link",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	i.logger.Info("All click attempts failed, aborting", zap.Int("attempts", i.maxAttempts))
	return i.maxAttempts, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, i.maxAttempts, lastErr)
}

// DiscoverClickable waits for the page to settle and returns the visible
// hyperlinks on it. When the page has links but none report as displayed,
// the unfiltered links are returned so the caller can still try them.
func (i *Interactor) DiscoverClickable(ctx context.Context, page Page) ([]Element, error) {
	if err := i.pacer.Settle(ctx); err != nil {
		return nil, err
	}

	elements, err := page.FindElements(ctx, i.linkXPath)
	if err != nil {
		return nil, err
	}
	i.logger.Info("Links found", zap.Int("count", len(elements)))
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElementsFound, i.linkXPath)
	}

	visible := make([]Element, 0, len(elements))
	for _, el := range elements {
		shown, err := el.IsDisplayed(ctx)
		if err != nil {
			return nil, fmt.Errorf("check link visibility: %w", err)
		}
		if shown {
			visible = append(visible, el)
		}
	}

	if len(visible) == 0 {
		i.logger.Debug("No link reports as displayed, keeping all candidates")
		return elements, nil
	}
	return visible, nil
}
