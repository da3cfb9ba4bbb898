// Package scenario runs a schedule of browser sessions. Each session signs
// in and then alternates randomly between browsing and messaging until its
// time budget is used up.
package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/feedwalker/internal/browser"
	"github.com/xkilldash9x/feedwalker/internal/config"
	"github.com/xkilldash9x/feedwalker/internal/humanoid"
)

// closeTimeout bounds browser teardown, which also runs after cancellation.
const closeTimeout = 30 * time.Second

// Activity names used in reports and log fields.
const (
	ActivityLaunch    = "launch"
	ActivityNavigate  = "navigate"
	ActivitySignIn    = "sign_in"
	ActivityBrowse    = "browse"
	ActivityBack      = "navigate_back"
	ActivityMessenger = "messenger"
	ActivityMessage   = "message"
)

// Launcher starts one fresh browser per session.
type Launcher interface {
	Launch(ctx context.Context) (browser.Page, error)
}

// Activities are the composite actions a session performs on its page.
type Activities interface {
	AcceptCookies(ctx context.Context) error
	SignIn(ctx context.Context, creds config.Credentials) (time.Duration, error)
	BrowseRandomLink(ctx context.Context) (time.Duration, error)
	OpenMessenger(ctx context.Context) (time.Duration, error)
	SendRandomMessage(ctx context.Context) (time.Duration, error)
}

// Binder creates the activities for a freshly launched page.
type Binder func(page browser.Page, pacer *humanoid.Pacer) Activities

// Report summarizes a finished or interrupted run.
type Report struct {
	Sessions   int
	Iterations int
	Browses    int
	Messages   int
	Failures   map[string]int
}

func (r *Report) fail(activity string) {
	if r.Failures == nil {
		r.Failures = make(map[string]int)
	}
	r.Failures[activity]++
}

// Driver runs schedules. It is not safe for concurrent use.
type Driver struct {
	logger   *zap.Logger
	launcher Launcher
	bind     Binder
	pacer    *humanoid.Pacer
	creds    config.Credentials

	landingURL        string
	browseProbability float64
	loadOverhead      time.Duration
}

// NewDriver creates a Driver. The pacer's random source decides every
// activity choice, so a seeded pacer makes runs repeatable.
func NewDriver(logger *zap.Logger, launcher Launcher, bind Binder, pacer *humanoid.Pacer, creds config.Credentials, site config.SiteConfig, scn config.ScenarioConfig) *Driver {
	return &Driver{
		logger:            logger.Named("scenario"),
		launcher:          launcher,
		bind:              bind,
		pacer:             pacer,
		creds:             creds,
		landingURL:        site.LandingURL,
		browseProbability: scn.BrowseProbability,
		loadOverhead:      scn.LoadOverhead,
	}
}

// Run processes the schedule in order, one session per entry, and sleeps
// each entry's interarrival gap after its browser is closed, including the
// last one. A failed session does not stop the run; cancellation does.
func (d *Driver) Run(ctx context.Context, schedule Schedule) (Report, error) {
	var report Report

	d.logger.Info("Setting up browsing",
		zap.Int("sessions", len(schedule)),
		zap.Duration("nominal_total", schedule.Total()),
	)

	for i, entry := range schedule {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		err := d.runSession(ctx, i+1, entry, &report)
		report.Sessions++
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			d.logger.Warn("Session aborted", zap.Int("session_index", i+1), zap.Error(err))
		}

		d.logger.Info("Time sleeping until next initiation of scenario",
			zap.String("sleep_secs", secs(entry.Interarrival)))
		if err := d.pacer.Sleep(ctx, entry.Interarrival); err != nil {
			return report, err
		}
	}

	d.logger.Info("Browsing ended successfully",
		zap.Int("sessions", report.Sessions),
		zap.Int("iterations", report.Iterations),
	)
	return report, nil
}

func (d *Driver) runSession(ctx context.Context, index int, entry Entry, report *Report) error {
	logger := d.logger.With(
		zap.String("session_id", uuid.NewString()),
		zap.Int("session_index", index),
	)
	logger.Info("Opening website", zap.String("url", d.landingURL), zap.Duration("budget", entry.Duration))

	page, err := d.launcher.Launch(ctx)
	if err != nil {
		report.fail(ActivityLaunch)
		return fmt.Errorf("launch browser: %w", err)
	}
	logger = logger.With(zap.String("page_id", page.ID()))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := page.Close(closeCtx); cerr != nil {
			logger.Warn("Error closing browser", zap.Error(cerr))
		}
	}()

	pacer := d.pacer
	if c, ok := page.(humanoid.Cursor); ok {
		pacer = d.pacer.WithCursor(c)
	}
	acts := d.bind(page, pacer)

	if err := page.Navigate(ctx, d.landingURL); err != nil {
		report.fail(ActivityNavigate)
		return err
	}

	// Time spent signing in counts against the session budget.
	s1, err := pacer.ActionPause(ctx)
	if err != nil {
		return err
	}
	d.acceptCookies(ctx, logger, acts)
	s2, err := pacer.ActionPause(ctx)
	if err != nil {
		return err
	}
	s3, err := acts.SignIn(ctx, d.creds)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.fail(ActivitySignIn)
		logger.Warn("Sign in failed, continuing session", zap.Error(err))
	}
	d.acceptCookies(ctx, logger, acts)

	remaining := entry.Duration - s1 - s2 - s3
	first := true

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		var spent time.Duration
		if d.chooseBrowse(pacer.Rand()) {
			logger.Info("Mode: browsing")
			spent, err = acts.BrowseRandomLink(ctx)
			report.Browses++
			d.record(ctx, report, ActivityBrowse, err)
			logger.Info("Ending mode: browsing", zap.String("secs", secs(spent)))
		} else {
			if !first {
				logger.Info("Going back to home page")
				if err := page.Back(ctx); err != nil {
					d.record(ctx, report, ActivityBack, err)
					logger.Info("Could not go back", zap.Error(err))
				}
				if err := pacer.Settle(ctx); err != nil {
					return err
				}
			}
			logger.Info("Mode: going on messenger")
			spent, err = d.message(ctx, acts, report)
			report.Messages++
			logger.Info("Ending mode: messenger", zap.String("secs", secs(spent)))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pause, err := pacer.SessionBreak(ctx)
		if err != nil {
			return err
		}

		// The overhead roughly covers element and page load waits that the
		// handlers do not report.
		remaining -= spent + pause + d.loadOverhead
		first = false
		report.Iterations++
		logger.Debug("Session budget updated", zap.String("remaining_secs", secs(remaining)))
	}

	logger.Info("Session finished")
	return nil
}

// message opens the thread list and, if that worked, messages a random
// contact. Both durations are charged even when a step fails.
func (d *Driver) message(ctx context.Context, acts Activities, report *Report) (time.Duration, error) {
	s4, err := acts.OpenMessenger(ctx)
	d.record(ctx, report, ActivityMessenger, err)
	if err != nil {
		return s4, err
	}
	s5, err := acts.SendRandomMessage(ctx)
	d.record(ctx, report, ActivityMessage, err)
	return s4 + s5, err
}

func (d *Driver) acceptCookies(ctx context.Context, logger *zap.Logger, acts Activities) {
	if err := acts.AcceptCookies(ctx); err != nil {
		logger.Debug("Cookie banner not accepted", zap.Error(err))
	}
}

// record counts a failed activity unless the run itself is being cancelled.
func (d *Driver) record(ctx context.Context, report *Report, activity string, err error) {
	if err == nil || ctx.Err() != nil {
		return
	}
	report.fail(activity)
}

// chooseBrowse decides one loop iteration: browse, or otherwise message.
func (d *Driver) chooseBrowse(rng *rand.Rand) bool {
	return rng.Float64() < d.browseProbability
}

func secs(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
}
