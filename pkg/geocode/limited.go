package geocode

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Gate bounds the number of calls in flight.
type Gate interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Limiter bounds the rate at which calls start.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Pauser holds the caller while the remote recovers from overload.
type Pauser interface {
	Pause(ctx context.Context) error
}

// DefaultCallTimeout bounds a single request when no timeout is configured.
const DefaultCallTimeout = 30 * time.Second

// LimitedOption configures a LimitedClient.
type LimitedOption func(*LimitedClient)

// WithCallTimeout sets the per-call timeout. Zero or negative disables it.
func WithCallTimeout(d time.Duration) LimitedOption {
	return func(l *LimitedClient) {
		l.timeout = d
	}
}

// WithLogger sets the logger used for cooldown events.
func WithLogger(log *zap.Logger) LimitedOption {
	return func(l *LimitedClient) {
		l.log = log
	}
}

// LimitedClient runs every call through the shared gate, limiter and
// cooldown. The primitives are shared by all calls of a run, so one
// LimitedClient (or several over the same primitives) enforces the ceilings
// process-wide.
type LimitedClient struct {
	next     Client
	gate     Gate
	limiter  Limiter
	cooldown Pauser
	timeout  time.Duration
	log      *zap.Logger
}

// NewLimitedClient wraps next with the given primitives.
func NewLimitedClient(next Client, gate Gate, limiter Limiter, cooldown Pauser, opts ...LimitedOption) *LimitedClient {
	l := &LimitedClient{
		next:     next,
		gate:     gate,
		limiter:  limiter,
		cooldown: cooldown,
		timeout:  DefaultCallTimeout,
		log:      zap.L(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Geocode acquires a slot, then a rate token, then calls next under the
// per-call timeout. A connection failure pauses the caller for the cooldown
// while it still holds its slot. The slot is released once on every path.
func (l *LimitedClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	release, err := l.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := l.call(ctx, addr)
	if err == nil {
		return res, nil
	}

	if KindOf(err) == KindConnectionFailed {
		l.log.Warn("geocode: connection refused, cooling down",
			zap.String("street", addr.Street),
			zap.String("street_number", addr.StreetNumber),
		)
		if perr := l.cooldown.Pause(ctx); perr != nil {
			l.log.Debug("geocode: cooldown interrupted", zap.Error(perr))
		}
	}
	return nil, err
}

func (l *LimitedClient) call(ctx context.Context, addr AddressInput) (*Result, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.next.Geocode(ctx, addr)
}
