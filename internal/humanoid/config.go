package humanoid

import (
	"fmt"
	"time"
)

// Range is a half-open interval [Min, Max) that delays are sampled from.
type Range struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// Validate rejects negative and inverted ranges.
func (r Range) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("range bounds must be non-negative (min=%s, max=%s)", r.Min, r.Max)
	}
	if r.Max < r.Min {
		return fmt.Errorf("range max %s is below min %s", r.Max, r.Min)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Min, r.Max)
}

// Config holds the pacing parameters for a simulated user.
type Config struct {
	// ActionPause separates individual steps (typing, clicking) inside an activity.
	ActionPause Range `mapstructure:"action_pause" yaml:"action_pause"`
	// SessionBreak separates activities inside one browser session.
	SessionBreak Range `mapstructure:"session_break" yaml:"session_break"`
	// Settle is the fixed wait for page content to render.
	Settle time.Duration `mapstructure:"settle" yaml:"settle"`
	// IdleCursor lets the mouse wander during pauses instead of sitting still.
	IdleCursor bool `mapstructure:"idle_cursor" yaml:"idle_cursor"`
	// ViewportWidth and ViewportHeight bound the idle cursor.
	ViewportWidth  int `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `mapstructure:"viewport_height" yaml:"viewport_height"`
	// Keystrokes types text one key at a time when enabled.
	Keystrokes KeystrokeConfig `mapstructure:"keystrokes" yaml:"keystrokes"`
}

// DefaultConfig returns the pacing used against the live site.
func DefaultConfig() Config {
	return Config{
		ActionPause:    Range{Min: 1 * time.Second, Max: 4 * time.Second},
		SessionBreak:   Range{Min: 7 * time.Second, Max: 10 * time.Second},
		Settle:         2 * time.Second,
		IdleCursor:     false,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		Keystrokes: KeystrokeConfig{
			Mean:   70 * time.Millisecond,
			StdDev: 28 * time.Millisecond,
			Min:    35 * time.Millisecond,
		},
	}
}

// Validate checks every range and the settle delay.
func (c Config) Validate() error {
	if err := c.ActionPause.Validate(); err != nil {
		return fmt.Errorf("humanoid.action_pause: %w", err)
	}
	if err := c.SessionBreak.Validate(); err != nil {
		return fmt.Errorf("humanoid.session_break: %w", err)
	}
	if c.Settle < 0 {
		return fmt.Errorf("humanoid.settle must be non-negative")
	}
	if c.IdleCursor && (c.ViewportWidth <= 0 || c.ViewportHeight <= 0) {
		return fmt.Errorf("humanoid.viewport_width and viewport_height must be positive when idle_cursor is enabled")
	}
	if err := c.Keystrokes.Validate(); err != nil {
		return fmt.Errorf("humanoid.keystrokes: %w", err)
	}
	return nil
}
