package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/feedwalker/internal/browser"
	"github.com/xkilldash9x/feedwalker/internal/config"
	"github.com/xkilldash9x/feedwalker/internal/humanoid"
	"github.com/xkilldash9x/feedwalker/internal/mocks"
)

// events is the ordered trace of everything a run did.
type events []string

func (e *events) add(s string) { *e = append(*e, s) }

func (e *events) recorder(name string) func(mock.Arguments) {
	return func(mock.Arguments) { e.add(name) }
}

type mockLauncher struct {
	mock.Mock
}

func (m *mockLauncher) Launch(ctx context.Context) (browser.Page, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Page), args.Error(1)
}

// fakeActivities reports fixed durations and traces every call.
type fakeActivities struct {
	ev        *events
	signIn    time.Duration
	browse    time.Duration
	messenger time.Duration
	message   time.Duration
	errs      map[string]error
	onBrowse  func()
}

func (f *fakeActivities) AcceptCookies(context.Context) error {
	f.ev.add("cookies")
	return errors.New("banner not shown")
}

func (f *fakeActivities) SignIn(_ context.Context, creds config.Credentials) (time.Duration, error) {
	f.ev.add("sign_in:" + creds.Username)
	return f.signIn, f.errs[ActivitySignIn]
}

func (f *fakeActivities) BrowseRandomLink(context.Context) (time.Duration, error) {
	f.ev.add("browse")
	if f.onBrowse != nil {
		f.onBrowse()
	}
	return f.browse, f.errs[ActivityBrowse]
}

func (f *fakeActivities) OpenMessenger(context.Context) (time.Duration, error) {
	f.ev.add("messenger")
	return f.messenger, f.errs[ActivityMessenger]
}

func (f *fakeActivities) SendRandomMessage(context.Context) (time.Duration, error) {
	f.ev.add("message")
	return f.message, f.errs[ActivityMessage]
}

type harness struct {
	ev       *events
	launcher *mockLauncher
	acts     *fakeActivities
	driver   *Driver
	logs     *observer.ObservedLogs
	pages    int
}

// newHarness builds a driver whose pauses are fixed (1s between actions, 8s
// between activities, 500ms settle) and recorded instead of slept.
func newHarness(t *testing.T, browseProbability float64) *harness {
	t.Helper()
	ev := &events{}
	sleep := func(ctx context.Context, d time.Duration) error {
		ev.add("sleep:" + d.String())
		return ctx.Err()
	}
	pacing := humanoid.Config{
		ActionPause:  humanoid.Range{Min: time.Second, Max: time.Second},
		SessionBreak: humanoid.Range{Min: 8 * time.Second, Max: 8 * time.Second},
		Settle:       500 * time.Millisecond,
	}
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	pacer := humanoid.New(pacing, logger, rand.New(rand.NewSource(7)), humanoid.WithSleep(sleep))

	h := &harness{
		ev:       ev,
		launcher: new(mockLauncher),
		acts: &fakeActivities{
			ev:        ev,
			signIn:    3 * time.Second,
			browse:    2 * time.Second,
			messenger: 2 * time.Second,
			message:   3 * time.Second,
			errs:      map[string]error{},
		},
		logs: logs,
	}
	bind := func(browser.Page, *humanoid.Pacer) Activities { return h.acts }
	h.driver = NewDriver(logger, h.launcher, bind, pacer,
		config.Credentials{Username: "alice", Password: "secret"},
		config.SiteConfig{LandingURL: "https://example.test/"},
		config.ScenarioConfig{BrowseProbability: browseProbability, LoadOverhead: 10 * time.Second},
	)
	return h
}

func (h *harness) newPage() *mocks.MockPage {
	h.pages++
	p := new(mocks.MockPage)
	p.On("ID").Return(fmt.Sprintf("tab-%d", h.pages)).Maybe()
	p.On("Navigate", mock.Anything, "https://example.test/").Run(h.ev.recorder("navigate")).Return(nil)
	p.On("Back", mock.Anything).Run(h.ev.recorder("back")).Return(nil)
	p.On("Close", mock.Anything).Run(h.ev.recorder("close")).Return(nil)
	return p
}

func (h *harness) expectLaunch(page browser.Page, err error) {
	call := h.launcher.On("Launch", mock.Anything).Run(h.ev.recorder("launch")).Once()
	if page == nil {
		call.Return(nil, err)
		return
	}
	call.Return(page, err)
}

func TestRun_OneSessionPerEntryInOrder(t *testing.T) {
	h := newHarness(t, 1)
	p1, p2 := h.newPage(), h.newPage()
	h.expectLaunch(p1, nil)
	h.expectLaunch(p2, nil)

	schedule, err := ParseSchedule("30,15", "2,2")
	require.NoError(t, err)

	report, err := h.driver.Run(context.Background(), schedule)
	require.NoError(t, err)

	// Session 1: 30 - 1 - 1 - 3 = 25s, two iterations of 2 + 8 + 10.
	// Session 2: 15 - 5 = 10s, one iteration.
	assert.Equal(t, events{
		"launch", "navigate", "sleep:1s", "cookies", "sleep:1s", "sign_in:alice", "cookies",
		"browse", "sleep:8s",
		"browse", "sleep:8s",
		"close", "sleep:2s",
		"launch", "navigate", "sleep:1s", "cookies", "sleep:1s", "sign_in:alice", "cookies",
		"browse", "sleep:8s",
		"close", "sleep:2s",
	}, *h.ev)

	assert.Equal(t, Report{Sessions: 2, Iterations: 3, Browses: 3}, report)
	h.launcher.AssertNumberOfCalls(t, "Launch", 2)
	p1.AssertNumberOfCalls(t, "Close", 1)
	p2.AssertNumberOfCalls(t, "Close", 1)
	assert.Equal(t, 1, h.logs.FilterMessage("Browsing ended successfully").Len())

	finished := h.logs.FilterMessage("Session finished").AllUntimed()
	require.Len(t, finished, 2)
	assert.Equal(t, "tab-1", finished[0].ContextMap()["page_id"])
	assert.Equal(t, "tab-2", finished[1].ContextMap()["page_id"])
}

func TestRun_BackPrecedesEveryMessagingButTheFirst(t *testing.T) {
	h := newHarness(t, 0)
	h.expectLaunch(h.newPage(), nil)

	report, err := h.driver.Run(context.Background(), Schedule{{Duration: 60 * time.Second}})
	require.NoError(t, err)

	// 60 - 5 = 55s, iterations of 2 + 3 + 8 + 10 = 23s: 32, 9, -14.
	assert.Equal(t, events{
		"launch", "navigate", "sleep:1s", "cookies", "sleep:1s", "sign_in:alice", "cookies",
		"messenger", "message", "sleep:8s",
		"back", "sleep:500ms", "messenger", "message", "sleep:8s",
		"back", "sleep:500ms", "messenger", "message", "sleep:8s",
		"close",
	}, *h.ev, "a zero interarrival gap is not slept")
	assert.Equal(t, Report{Sessions: 1, Iterations: 3, Messages: 3}, report)
}

func TestRun_BudgetExhaustedBySignIn(t *testing.T) {
	h := newHarness(t, 1)
	h.acts.signIn = 20 * time.Second
	h.expectLaunch(h.newPage(), nil)

	report, err := h.driver.Run(context.Background(), Schedule{{Duration: 15 * time.Second, Interarrival: time.Second}})
	require.NoError(t, err)

	assert.NotContains(t, *h.ev, "browse")
	assert.Equal(t, 0, report.Iterations)
	assert.Equal(t, "sleep:1s", (*h.ev)[len(*h.ev)-1])
}

func TestRun_FailuresAreChargedAndCounted(t *testing.T) {
	h := newHarness(t, 0)
	h.acts.errs[ActivitySignIn] = errors.New("email field missing")
	h.acts.errs[ActivityMessenger] = browser.ErrElementNotFound
	h.expectLaunch(h.newPage(), nil)

	report, err := h.driver.Run(context.Background(), Schedule{{Duration: 40 * time.Second}})
	require.NoError(t, err)

	assert.NotContains(t, *h.ev, "message", "no message without an open thread list")
	// 40 - 5 = 35s; each iteration costs 2 + 8 + 10 = 20s even though it failed.
	assert.Equal(t, 2, report.Iterations)
	assert.Equal(t, map[string]int{ActivitySignIn: 1, ActivityMessenger: 2}, report.Failures)
}

func TestRun_FailedSessionDoesNotStopTheRun(t *testing.T) {
	h := newHarness(t, 1)
	h.expectLaunch(nil, errors.New("chrome not found"))
	h.expectLaunch(h.newPage(), nil)

	report, err := h.driver.Run(context.Background(), Schedule{
		{Duration: 10 * time.Second, Interarrival: 3 * time.Second},
		{Duration: 10 * time.Second, Interarrival: 4 * time.Second},
	})
	require.NoError(t, err)

	assert.Equal(t, events{"launch", "sleep:3s"}, (*h.ev)[:2], "the gap is slept after a failed launch too")
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, map[string]int{ActivityLaunch: 1}, report.Failures)
	assert.Equal(t, 1, h.logs.FilterMessage("Session aborted").Len())
}

func TestRun_NavigateFailureClosesBrowser(t *testing.T) {
	h := newHarness(t, 1)
	page := new(mocks.MockPage)
	page.On("ID").Return("tab-1").Maybe()
	page.On("Navigate", mock.Anything, mock.Anything).Return(errors.New("net::ERR_NAME_NOT_RESOLVED"))
	page.On("Close", mock.Anything).Run(h.ev.recorder("close")).Return(nil)
	h.expectLaunch(page, nil)

	report, err := h.driver.Run(context.Background(), Schedule{{Duration: 30 * time.Second}})
	require.NoError(t, err)

	assert.Equal(t, events{"launch", "close"}, *h.ev)
	assert.Equal(t, map[string]int{ActivityNavigate: 1}, report.Failures)
}

func TestRun_CancellationStillClosesBrowser(t *testing.T) {
	h := newHarness(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.acts.onBrowse = cancel
	page := h.newPage()
	h.expectLaunch(page, nil)

	report, err := h.driver.Run(ctx, Schedule{{Duration: 100 * time.Second, Interarrival: time.Second}, {Duration: 10 * time.Second}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Sessions)
	assert.Empty(t, report.Failures, "cancellation is not an activity failure")
	page.AssertNumberOfCalls(t, "Close", 1)
	h.launcher.AssertNumberOfCalls(t, "Launch", 1)
	assert.Equal(t, "close", (*h.ev)[len(*h.ev)-1])
}

func TestChooseBrowse_FairSplit(t *testing.T) {
	d := &Driver{browseProbability: 0.5}
	rng := rand.New(rand.NewSource(2024))

	const n = 10000
	browses := 0
	for i := 0; i < n; i++ {
		if d.chooseBrowse(rng) {
			browses++
		}
	}

	// Five standard deviations of a fair binomial with n = 10000 is 250.
	assert.InDelta(t, n/2, browses, 250)
}

func TestChooseBrowse_Extremes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	never, always := &Driver{browseProbability: 0}, &Driver{browseProbability: 1}
	for i := 0; i < 1000; i++ {
		assert.False(t, never.chooseBrowse(rng))
		assert.True(t, always.chooseBrowse(rng))
	}
}
