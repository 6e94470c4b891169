package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
)

// DelayFor returns the minimum spacing between two external calls for a
// ceiling of perMinute requests per minute, rounded up to the millisecond.
func DelayFor(perMinute int) time.Duration {
	if perMinute <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(60000/float64(perMinute))) * time.Millisecond
}

// Pacer is a token bucket of size one refilled every DelayFor(perMinute).
// The first Wait returns immediately; every following Wait blocks until the
// interval since the previous grant has elapsed on the pacer's clock.
type Pacer struct {
	limiter  *rate.Limiter
	clock    clock.Clock
	interval time.Duration

	mu sync.Mutex
	// lastGrant is when the most recent token becomes usable. Two grants
	// are never closer than interval, whatever the float limit rounds to.
	lastGrant time.Time
}

func NewPacer(perMinute int, clk clock.Clock) *Pacer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	interval := DelayFor(perMinute)
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clk,
		interval: interval,
	}
}

func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next call is allowed or ctx is done. A cancelled wait
// gives its token back.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		p.mu.Unlock()
		return fmt.Errorf("pacer cannot grant a token with burst %d", p.limiter.Burst())
	}

	grantAt := now.Add(r.DelayFrom(now))
	previous := p.lastGrant
	if !previous.IsZero() {
		if earliest := previous.Add(p.interval); grantAt.Before(earliest) {
			grantAt = earliest
		}
	}
	p.lastGrant = grantAt
	p.mu.Unlock()

	if err := Sleep(ctx, p.clock, grantAt.Sub(now)); err != nil {
		p.mu.Lock()
		r.CancelAt(p.clock.Now())
		if p.lastGrant.Equal(grantAt) {
			p.lastGrant = previous
		}
		p.mu.Unlock()
		return err
	}
	return nil
}

// Sleep waits for d on clk, returning early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := clk.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
