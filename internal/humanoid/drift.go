package humanoid

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"
)

const (
	driftFrequency = 0.5 // direction changes per second
	driftStepMin   = 50 * time.Millisecond
	driftStepJit   = 100 // ms added on top of driftStepMin
)

// Vector2D is a point on the page, in CSS pixels.
type Vector2D struct {
	X, Y float64
}

// drifter wanders the cursor around an anchor point with smooth Perlin noise
// while a pause elapses.
type drifter struct {
	cursor    Cursor
	rng       *rand.Rand
	logger    *zap.Logger
	step      SleepFunc
	noiseX    *perlin.Perlin
	noiseY    *perlin.Perlin
	width     float64
	height    float64
	amplitude float64
	anchor    Vector2D
}

func newDrifter(rng *rand.Rand, c Cursor, width, height int, logger *zap.Logger) *drifter {
	seed := rng.Int63()
	w, h := float64(width), float64(height)
	return &drifter{
		cursor:    c,
		rng:       rng,
		logger:    logger,
		step:      hesitate,
		noiseX:    perlin.NewPerlin(2, 2, 3, seed),
		noiseY:    perlin.NewPerlin(2, 2, 3, seed+1),
		width:     w,
		height:    h,
		amplitude: math.Min(w, h) / 8,
		anchor: Vector2D{
			X: w/2 + rng.NormFloat64()*(w/8),
			Y: h/2 + rng.NormFloat64()*(h/8),
		},
	}
}

// point returns the cursor position t seconds into a pause, clamped to the viewport.
func (d *drifter) point(t float64) Vector2D {
	x := d.anchor.X + d.noiseX.Noise1D(t*driftFrequency)*d.amplitude
	y := d.anchor.Y + d.noiseY.Noise1D(t*driftFrequency)*d.amplitude
	return Vector2D{
		X: math.Max(1, math.Min(x, d.width-1)),
		Y: math.Max(1, math.Min(y, d.height-1)),
	}
}

// drift has the signature of a SleepFunc. Elapsed time is the sum of the
// steps slept so far, so the pause lasts exactly total.
func (d *drifter) drift(ctx context.Context, total time.Duration) error {
	var elapsed time.Duration
	for elapsed < total {
		if err := ctx.Err(); err != nil {
			return err
		}
		pos := d.point(elapsed.Seconds())
		if err := d.cursor.MoveMouse(ctx, pos.X, pos.Y); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Debug("Idle cursor move failed", zap.Error(err))
		}

		step := driftStepMin + time.Duration(d.rng.Intn(driftStepJit))*time.Millisecond
		if remaining := total - elapsed; step > remaining {
			step = remaining
		}
		if err := d.step(ctx, step); err != nil {
			return err
		}
		elapsed += step
	}
	return nil
}
