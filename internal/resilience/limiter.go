package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Limiter is a token bucket granting Limit starts per Window, refilled
// continuously. The bucket paces callers; a record of the last Limit grant
// times then holds each grant until the oldest of them is a full Window old,
// so no half-open window of length Window ever holds more than Limit grants,
// however late timers fire and whatever the burst.
type Limiter struct {
	lim    *rate.Limiter
	limit  int
	window time.Duration

	// turn serializes grants; holding it means owning recent and next.
	turn   chan struct{}
	recent []time.Time
	next   int

	granted atomic.Int64
}

// NewLimiter creates a limiter for limit calls per window. A non-positive
// limit or window disables limiting.
func NewLimiter(limit int, window time.Duration, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	l := &Limiter{
		lim:    rate.NewLimiter(rate.Inf, burst),
		limit:  limit,
		window: window,
		turn:   make(chan struct{}, 1),
	}
	if limit > 0 && window > 0 {
		l.lim = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), burst)
		l.recent = make([]time.Time, limit)
	}
	return l
}

// Wait blocks until a start is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.lim.Wait(ctx); err != nil {
		return eris.Wrap(err, "limiter: wait")
	}
	if l.recent == nil {
		l.granted.Add(1)
		return nil
	}

	select {
	case l.turn <- struct{}{}:
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "limiter: wait")
	}
	defer func() { <-l.turn }()

	// recent[next] is the oldest of the last limit grants (zero until filled).
	for {
		delay := time.Until(l.recent[l.next].Add(l.window))
		if delay <= 0 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return eris.Wrap(ctx.Err(), "limiter: wait")
		case <-timer.C:
		}
	}

	l.recent[l.next] = time.Now()
	l.next = (l.next + 1) % len(l.recent)
	l.granted.Add(1)
	return nil
}

// Granted returns the number of starts handed out by Wait.
func (l *Limiter) Granted() int64 { return l.granted.Load() }

// Limit returns the configured starts per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window.
func (l *Limiter) Window() time.Duration { return l.window }
