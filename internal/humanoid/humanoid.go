// Package humanoid paces a simulated user. Every delay is sampled from a
// configured range, blocks the caller, and is reported back so the caller
// can charge it against a time budget.
package humanoid

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Cursor is implemented by pages that can move the mouse pointer.
type Cursor interface {
	MoveMouse(ctx context.Context, x, y float64) error
}

// Pacer samples and performs the delays between simulated user actions.
// It is not safe for concurrent use; a scenario runs on one goroutine.
type Pacer struct {
	cfg    Config
	logger *zap.Logger
	rng    *rand.Rand
	sleep  SleepFunc
	// keySleep stays a plain wait when sleep drifts the cursor.
	keySleep SleepFunc
}

// Option customizes a Pacer.
type Option func(*Pacer)

// WithSleep replaces the blocking sleep, mostly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(p *Pacer) { p.sleep = fn }
}

// New creates a Pacer. A nil rng is replaced with a time-seeded one.
func New(cfg Config, logger *zap.Logger, rng *rand.Rand, opts ...Option) *Pacer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pacer{
		cfg:    cfg,
		logger: logger.Named("pacer"),
		rng:    rng,
		sleep:  hesitate,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.keySleep = p.sleep
	return p
}

// Rand exposes the pacer's random source so callers share one stream.
func (p *Pacer) Rand() *rand.Rand { return p.rng }

// WithCursor returns a pacer that shares this pacer's random source and, when
// idle cursor movement is enabled, drifts the pointer during every pause.
func (p *Pacer) WithCursor(c Cursor) *Pacer {
	clone := *p
	if p.cfg.IdleCursor && c != nil {
		d := newDrifter(p.rng, c, p.cfg.ViewportWidth, p.cfg.ViewportHeight, p.logger)
		d.step = p.sleep
		clone.sleep = d.drift
	}
	return &clone
}

// Sample draws a duration uniformly from [r.Min, r.Max).
func (p *Pacer) Sample(r Range) time.Duration {
	span := r.Max - r.Min
	if span <= 0 {
		return r.Min
	}
	return r.Min + time.Duration(p.rng.Float64()*float64(span))
}

// ActionPause waits between two steps of an activity and returns the wait.
func (p *Pacer) ActionPause(ctx context.Context) (time.Duration, error) {
	d := p.Sample(p.cfg.ActionPause)
	p.logger.Info("Pausing between actions", zap.String("sleep_secs", secs(d)))
	return d, p.sleep(ctx, d)
}

// SessionBreak waits between two activities and returns the wait.
func (p *Pacer) SessionBreak(ctx context.Context) (time.Duration, error) {
	d := p.Sample(p.cfg.SessionBreak)
	p.logger.Info("Pausing between activities", zap.String("sleep_secs", secs(d)))
	return d, p.sleep(ctx, d)
}

// Settle waits the fixed time a page needs to render its content.
func (p *Pacer) Settle(ctx context.Context) error {
	return p.sleep(ctx, p.cfg.Settle)
}

// Sleep blocks for an exact duration.
func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return p.sleep(ctx, d)
}

// hesitate pauses execution, respecting the context cancellation.
func hesitate(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// secs renders a delay the way the status lines show it, e.g. "2.37".
func secs(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
}
