package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/review-harvester/pkg/review"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	reviewRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_retries_total",
		Help: "Total number of page retry attempts by failed outcome",
	}, []string{"outcome"})

	reviewRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_retry_backoff_seconds",
		Help:    "Backoff duration before a page retry by failed outcome",
		Buckets: []float64{0.5, 1, 2, 5},
	}, []string{"outcome"})

	reviewRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_retry_exhausted_total",
		Help: "Total number of pages whose retry budget was exhausted by last outcome",
	}, []string{"outcome"})
)

var (
	// ErrRetryExhausted is returned when a page failed on every attempt.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context ends during a retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// DefaultBackoff is used for failed outcomes missing from the policy table.
const DefaultBackoff = 1 * time.Second

// RetryPolicy holds the per-page retry budget and the fixed wait before the
// next attempt, keyed by the failed outcome.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts per page, including the first.
	MaxAttempts int

	// Backoff is the wait after a failed attempt of the given kind.
	Backoff map[review.OutcomeKind]time.Duration
}

// DefaultRetryPolicy returns the policy of the public review API:
// 3 attempts, 2s after a 429, 1s after anything else.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: map[review.OutcomeKind]time.Duration{
			review.OutcomeRateLimited:    2 * time.Second,
			review.OutcomeServerError:    1 * time.Second,
			review.OutcomeTransportError: 1 * time.Second,
			review.OutcomeMalformed:      1 * time.Second,
		},
	}
}

// BackoffFor returns the wait that follows a failed attempt of kind.
func (p RetryPolicy) BackoffFor(kind review.OutcomeKind) time.Duration {
	if d, ok := p.Backoff[kind]; ok {
		return d
	}
	return DefaultBackoff
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the timer-based SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fetchWithRetry requests one page up to MaxAttempts times. It returns the
// successful outcome, or the last failed outcome wrapped in ErrRetryExhausted
// together with the kind of every failed attempt.
func (p *Paginator) fetchWithRetry(ctx context.Context, req review.FetchRequest) (review.Outcome, []review.OutcomeKind, error) {
	policy := p.config.Retry
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last review.Outcome
	failed := make([]review.OutcomeKind, 0, maxAttempts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last = p.fetcher.Fetch(ctx, req)
		if last.OK() {
			if attempt > 1 {
				p.logger.Info().
					Int("product_id", req.ProductID).
					Str("cursor", req.Cursor).
					Int("attempt", attempt).
					Msg("Page succeeded after retry")
			}
			return last, failed, nil
		}

		failed = append(failed, last.Kind)

		if ctx.Err() != nil {
			return last, failed, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}

		// If this was the last attempt, don't wait
		if attempt >= maxAttempts {
			break
		}

		backoff := policy.BackoffFor(last.Kind)
		reviewRetriesTotal.WithLabelValues(string(last.Kind)).Inc()
		reviewRetryBackoffSeconds.WithLabelValues(string(last.Kind)).Observe(backoff.Seconds())

		p.logger.Debug().
			Int("product_id", req.ProductID).
			Str("cursor", req.Cursor).
			Str("outcome", string(last.Kind)).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying page after backoff")

		if err := p.sleep(ctx, backoff); err != nil {
			p.logger.Warn().
				Str("outcome", string(last.Kind)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return last, failed, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}

	reviewRetryExhaustedTotal.WithLabelValues(string(last.Kind)).Inc()
	p.logger.Warn().
		Int("product_id", req.ProductID).
		Str("cursor", req.Cursor).
		Str("outcome", string(last.Kind)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return last, failed, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, maxAttempts, last.Err)
}
