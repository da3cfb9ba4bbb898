// Package actions implements the composite user activities performed on the
// target site. Every handler reports the paced time it spent, including when
// it fails part way, next to an explicit error.
package actions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/feedwalker/internal/browser"
	"github.com/xkilldash9x/feedwalker/internal/config"
	"github.com/xkilldash9x/feedwalker/internal/humanoid"
)

// DefaultMessageLength is the number of random characters in a message.
const DefaultMessageLength = 100

// Handlers performs activities on one page.
type Handlers struct {
	logger        *zap.Logger
	page          browser.Page
	pacer         *humanoid.Pacer
	interactor    *browser.Interactor
	selectors     config.SelectorsConfig
	waitTimeout   time.Duration
	queries       QuerySource
	messageLength int
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithQuerySource overrides where search phrases come from.
func WithQuerySource(q QuerySource) Option {
	return func(h *Handlers) { h.queries = q }
}

// WithMessageLength sets how many characters SendRandomMessage types.
func WithMessageLength(n int) Option {
	return func(h *Handlers) {
		if n > 0 {
			h.messageLength = n
		}
	}
}

// New binds the handlers to page. The pacer and interactor must share a
// random source for a run to be reproducible from one seed.
func New(logger *zap.Logger, page browser.Page, pacer *humanoid.Pacer, interactor *browser.Interactor, site config.SiteConfig, opts ...Option) *Handlers {
	h := &Handlers{
		logger:        logger.Named("actions"),
		page:          page,
		pacer:         pacer,
		interactor:    interactor,
		selectors:     site.Selectors,
		waitTimeout:   site.WaitTimeout,
		queries:       NewQuerySource(site.QueriesFile),
		messageLength: DefaultMessageLength,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AcceptCookies clicks the cookie consent button if the banner is shown.
// Callers treat a failure as harmless.
func (h *Handlers) AcceptCookies(ctx context.Context) error {
	h.logger.Info("Locating Accept Cookies element")
	button, err := h.page.WaitForElement(ctx, h.selectors.CookieAccept, h.waitTimeout)
	if err != nil {
		h.logger.Info("Could not locate Accept Cookies element", zap.Error(err))
		return err
	}
	if err := button.Click(ctx); err != nil {
		h.logger.Info("Could not click Accept Cookies element", zap.Error(err))
		return err
	}
	h.logger.Info("Accept Cookies button clicked successfully")
	return nil
}

// Search types query into the search form and submits it. The form is
// known to drop keystrokes, so Escape is sent and the field re-clicked
// before submitting.
func (h *Handlers) Search(ctx context.Context, query string) (spent time.Duration, err error) {
	defer h.abort("Searching element", &err)
	return h.search(ctx, query)
}

func (h *Handlers) search(ctx context.Context, query string) (spent time.Duration, err error) {
	h.logger.Info("Locating search form")
	search, err := h.page.WaitForElement(ctx, h.selectors.Search, h.waitTimeout)
	if err != nil {
		return spent, err
	}

	h.logger.Info("Filling search form", zap.String("query", query))
	if err := h.fill(ctx, search, query, &spent); err != nil {
		return spent, err
	}
	if err := search.SendKeys(ctx, browser.KeyEscape); err != nil {
		return spent, err
	}
	if err := search.Click(ctx); err != nil {
		return spent, err
	}
	if err := h.pause(ctx, &spent); err != nil {
		return spent, err
	}

	if err := search.SendKeys(ctx, browser.KeyEnter); err != nil {
		return spent, err
	}
	err = h.pause(ctx, &spent)
	return spent, err
}

// SignIn fills in the credentials and submits the login form.
func (h *Handlers) SignIn(ctx context.Context, creds config.Credentials) (spent time.Duration, err error) {
	defer h.abort("Signing in", &err)

	h.logger.Info("Locating email form")
	email, err := h.page.WaitForElement(ctx, h.selectors.Email, h.waitTimeout)
	if err != nil {
		return spent, err
	}
	h.logger.Info("Filling email form")
	if err := h.fill(ctx, email, creds.Username, &spent); err != nil {
		return spent, err
	}
	if err := h.pause(ctx, &spent); err != nil {
		return spent, err
	}

	h.logger.Info("Locating password form")
	password, err := h.page.WaitForElement(ctx, h.selectors.Password, h.waitTimeout)
	if err != nil {
		return spent, err
	}
	h.logger.Info("Filling password form")
	if err := h.fill(ctx, password, creds.Password, &spent); err != nil {
		return spent, err
	}
	if err := h.pause(ctx, &spent); err != nil {
		return spent, err
	}

	if err := password.SendKeys(ctx, browser.KeyEnter); err != nil {
		return spent, err
	}
	err = h.pause(ctx, &spent)
	return spent, err
}

// OpenMessenger opens the messaging panel and follows it to the full
// thread list.
func (h *Handlers) OpenMessenger(ctx context.Context) (spent time.Duration, err error) {
	defer h.abort("Clicking on messenger", &err)

	h.logger.Info("Locating messenger button")
	if err := h.click(ctx, h.selectors.MessengerButton); err != nil {
		return spent, err
	}
	h.logger.Info("Messenger button clicked successfully")
	if err := h.pause(ctx, &spent); err != nil {
		return spent, err
	}

	h.logger.Info("Locating go to messenger tab")
	if err := h.click(ctx, h.selectors.MessengerAll); err != nil {
		return spent, err
	}
	h.logger.Info("Go to messenger tab clicked successfully")
	err = h.pause(ctx, &spent)
	return spent, err
}

// SendRandomMessage opens a random conversation and sends it a random
// alphanumeric message.
func (h *Handlers) SendRandomMessage(ctx context.Context) (spent time.Duration, err error) {
	defer h.abort("Sending message on messenger", &err)

	if err := h.pacer.Settle(ctx); err != nil {
		return spent, err
	}

	h.logger.Info("Locating contacts list")
	contacts, err := h.page.WaitForElements(ctx, h.selectors.ThreadListItem, h.waitTimeout)
	if err != nil {
		return spent, err
	}
	if len(contacts) == 0 {
		return spent, browser.ErrNoElementsFound
	}
	contact := contacts[h.pacer.Rand().Intn(len(contacts))]
	if err := contact.Click(ctx); err != nil {
		return spent, err
	}
	h.logger.Info("Contacts list clicked successfully", zap.Int("contacts", len(contacts)))
	if err := h.pause(ctx, &spent); err != nil {
		return spent, err
	}

	h.logger.Info("Locating chat form")
	chat, err := h.page.WaitForElement(ctx, h.selectors.ComposeBox, h.waitTimeout)
	if err != nil {
		return spent, err
	}
	h.logger.Info("Filling chat form")
	typed, err := h.pacer.Type(ctx, chat, humanoid.RandomText(h.pacer.Rand(), h.messageLength))
	spent += typed
	if err != nil {
		return spent, err
	}
	if err := h.pause(ctx, &spent); err != nil {
		return spent, err
	}

	h.logger.Info("Sending message")
	if err := chat.SendKeys(ctx, browser.KeyEnter); err != nil {
		return spent, err
	}
	err = h.pause(ctx, &spent)
	return spent, err
}

// BrowseRandomLink searches for a random phrase and clicks a random link on
// the results page.
func (h *Handlers) BrowseRandomLink(ctx context.Context) (spent time.Duration, err error) {
	defer h.abort("Browsing", &err)

	h.logger.Info("Creating search queries list")
	queries, err := h.queries.Queries()
	if err != nil {
		return spent, err
	}
	query := queries[h.pacer.Rand().Intn(len(queries))]

	spent, err = h.search(ctx, query)
	if err != nil {
		return spent, err
	}

	links, err := h.interactor.DiscoverClickable(ctx, h.page)
	if err != nil {
		return spent, err
	}
	if _, err := h.interactor.ClickRandom(ctx, links); err != nil {
		return spent, err
	}

	err = h.pause(ctx, &spent)
	return spent, err
}

func (h *Handlers) click(ctx context.Context, xpath string) error {
	el, err := h.page.WaitForElement(ctx, xpath, h.waitTimeout)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (h *Handlers) pause(ctx context.Context, spent *time.Duration) error {
	d, err := h.pacer.ActionPause(ctx)
	*spent += d
	return err
}

// abort logs a failed activity and tags the error with its name.
func (h *Handlers) abort(activity string, err *error) {
	if *err == nil {
		return
	}
	h.logger.Info("Activity aborted", zap.String("activity", activity), zap.Error(*err))
	*err = fmt.Errorf("%s: %w", activity, *err)
}

// fill replaces the contents of a form field, charging any typing time.
func (h *Handlers) fill(ctx context.Context, el browser.Element, text string, spent *time.Duration) error {
	if err := el.Clear(ctx); err != nil {
		return err
	}
	typed, err := h.pacer.Type(ctx, el, text)
	*spent += typed
	return err
}
