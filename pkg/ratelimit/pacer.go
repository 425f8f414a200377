package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPageInterval is the pause between consecutive page requests.
const DefaultPageInterval = 10 * time.Millisecond

// Pacer spaces out page requests. It is cooperative pacing only and does
// not react to server rate limits.
//
// Wait before each page and call Done when the page finished: the next Wait
// then pauses at least one interval however long the page took.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer with a minimum pause of interval between pages.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next page may be requested or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Done marks the end of a page. It takes the token that accrued while the
// page was in flight, so the following Wait cannot pass immediately.
func (p *Pacer) Done() {
	p.limiter.Reserve()
}
