package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CooldownState represents whether any caller is backing off from an overloaded remote.
type CooldownState int

const (
	// CooldownActive is the normal state: no caller is paused.
	CooldownActive CooldownState = iota
	// CooldownPaused means at least one caller is sitting out its cooldown.
	CooldownPaused
)

func (s CooldownState) String() string {
	switch s {
	case CooldownActive:
		return "active"
	case CooldownPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// CooldownConfig controls the overload cooldown.
type CooldownConfig struct {
	// Duration is how long a caller pauses after the remote refuses a
	// connection. Default: 5s.
	Duration time.Duration

	// OnStateChange is called when the cooldown transitions between states.
	OnStateChange func(from, to CooldownState)
}

// DefaultCooldownConfig returns the default 5s cooldown.
func DefaultCooldownConfig() CooldownConfig {
	return CooldownConfig{Duration: 5 * time.Second}
}

// Cooldown is the paused state a caller enters when the remote signals
// overload. Pause holds the caller, and anything it still owns such as a gate
// slot, for the configured duration.
type Cooldown struct {
	cfg CooldownConfig

	mu       sync.Mutex
	paused   int
	trips    int64
	lastTrip time.Time

	// nowFunc and sleepFunc allow test injection of time.
	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewCooldown creates a cooldown with the given config.
func NewCooldown(cfg CooldownConfig) *Cooldown {
	if cfg.Duration < 0 {
		cfg.Duration = 0
	}
	return &Cooldown{
		cfg:       cfg,
		nowFunc:   time.Now,
		sleepFunc: sleepCtx,
	}
}

// Pause moves the caller into the paused state for the cooldown duration.
// It returns early with an error if ctx is done.
func (c *Cooldown) Pause(ctx context.Context) error {
	c.enter()
	defer c.exit()
	return c.sleepFunc(ctx, c.cfg.Duration)
}

// State returns the current cooldown state.
func (c *Cooldown) State() CooldownState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused > 0 {
		return CooldownPaused
	}
	return CooldownActive
}

// Trips returns how many times a caller entered the paused state.
func (c *Cooldown) Trips() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trips
}

// LastTrip returns when the paused state was last entered (zero if never).
func (c *Cooldown) LastTrip() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTrip
}

// Duration returns the configured pause length.
func (c *Cooldown) Duration() time.Duration { return c.cfg.Duration }

func (c *Cooldown) enter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trips++
	c.lastTrip = c.nowFunc()
	c.paused++
	if c.paused == 1 {
		c.transition(CooldownActive, CooldownPaused)
	}
}

func (c *Cooldown) exit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.paused--
	if c.paused == 0 {
		c.transition(CooldownPaused, CooldownActive)
	}
}

func (c *Cooldown) transition(from, to CooldownState) {
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(from, to)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "cooldown: interrupted")
	case <-timer.C:
		return nil
	}
}
