package resilience

import (
	"time"

	"go.uber.org/zap"
)

// LimitsConfig holds the run-wide ceilings for calls to the geocoding service.
type LimitsConfig struct {
	Concurrency int
	RateLimit   int
	RateWindow  time.Duration
	Burst       int
	Cooldown    time.Duration
}

// Limits bundles the primitives shared by every call in a run. A single
// Limits must be shared across batches so the ceilings hold run-wide.
type Limits struct {
	Gate     *Gate
	Limiter  *Limiter
	Cooldown *Cooldown
}

// NewLimits builds the shared gate, limiter and cooldown from cfg. Cooldown
// state changes are logged.
func NewLimits(cfg LimitsConfig) *Limits {
	return &Limits{
		Gate:    NewGate(cfg.Concurrency),
		Limiter: NewLimiter(cfg.RateLimit, cfg.RateWindow, cfg.Burst),
		Cooldown: NewCooldown(CooldownConfig{
			Duration: cfg.Cooldown,
			OnStateChange: func(from, to CooldownState) {
				zap.L().Info("geocode cooldown state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}
