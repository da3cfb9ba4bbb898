package humanoid

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// commonNgrams are typed in one practised motion and come out faster.
var commonNgrams = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true, "re": true,
	"es": true, "on": true, "st": true, "nt": true,
	"the": true, "and": true, "ing": true, "ion": true, "tio": true,
}

// KeystrokeConfig controls per-key typing. When disabled, text is sent to
// an element in one call.
type KeystrokeConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Mean    time.Duration `mapstructure:"mean" yaml:"mean"`
	StdDev  time.Duration `mapstructure:"std_dev" yaml:"std_dev"`
	Min     time.Duration `mapstructure:"min" yaml:"min"`
}

// Validate rejects a cadence that cannot be sampled.
func (k KeystrokeConfig) Validate() error {
	if !k.Enabled {
		return nil
	}
	if k.Mean <= 0 || k.StdDev < 0 || k.Min < 0 {
		return fmt.Errorf("mean must be positive, std_dev and min non-negative (mean=%s, std_dev=%s, min=%s)", k.Mean, k.StdDev, k.Min)
	}
	return nil
}

// KeySender accepts keystrokes.
type KeySender interface {
	SendKeys(ctx context.Context, text string) error
}

// Type sends text to el and returns the time spent between keys. With
// keystrokes enabled every rune is sent on its own after an inter-key delay.
func (p *Pacer) Type(ctx context.Context, el KeySender, text string) (time.Duration, error) {
	if !p.cfg.Keystrokes.Enabled {
		return 0, el.SendKeys(ctx, text)
	}

	var spent time.Duration
	runes := []rune(text)
	for i, r := range runes {
		d := p.keyDelay(runes, i)
		spent += d
		if err := p.keySleep(ctx, d); err != nil {
			return spent, err
		}
		if err := el.SendKeys(ctx, string(r)); err != nil {
			return spent, fmt.Errorf("send key %d of %d: %w", i+1, len(runes), err)
		}
	}
	return spent, nil
}

// keyDelay samples the flight time before runes[i].
func (p *Pacer) keyDelay(runes []rune, i int) time.Duration {
	k := p.cfg.Keystrokes
	factor := 1.0
	if i >= 2 && commonNgrams[strings.ToLower(string(runes[i-2:i+1]))] {
		factor = 0.55
	} else if i >= 1 && commonNgrams[strings.ToLower(string(runes[i-1:i+1]))] {
		factor = 0.7
	}

	mean := float64(k.Mean) * factor
	floor := float64(k.Min) * factor
	delay := p.rng.NormFloat64()*float64(k.StdDev) + mean
	return time.Duration(math.Max(floor, delay))
}
