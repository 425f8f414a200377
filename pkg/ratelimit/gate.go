// Package ratelimit implements request gating for the review API: a counting
// gate that caps simultaneous in-flight fetch attempts and a pacer that spaces
// consecutive page requests.
package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrencyLimit caps in-flight fetch attempts.
const DefaultConcurrencyLimit = 12

// Prometheus metrics for gate tracking.
var (
	reviewInflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "review_inflight_requests",
		Help: "Number of review API requests currently holding a gate slot",
	})

	reviewGateWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_gate_waits_total",
		Help: "Total number of requests that had to wait for a free gate slot",
	})
)

// Gate is a counting semaphore over in-flight requests.
type Gate struct {
	sem      *semaphore.Weighted
	limit    int64
	inflight atomic.Int64
	peak     atomic.Int64
	logger   zerolog.Logger
}

// NewGate creates a gate admitting at most limit concurrent holders.
// A non-positive limit falls back to DefaultConcurrencyLimit and larger
// limits are capped at it.
func NewGate(limit int, logger zerolog.Logger) *Gate {
	switch {
	case limit <= 0:
		limit = DefaultConcurrencyLimit
	case limit > DefaultConcurrencyLimit:
		logger.Warn().
			Int("requested", limit).
			Int("limit", DefaultConcurrencyLimit).
			Msg("Concurrency limit capped")
		limit = DefaultConcurrencyLimit
	}
	return &Gate{
		sem:    semaphore.NewWeighted(int64(limit)),
		limit:  int64(limit),
		logger: logger,
	}
}

// Acquire blocks until a slot is free or ctx is done.
// The returned release func must be called exactly once.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	if !g.sem.TryAcquire(1) {
		reviewGateWaitsTotal.Inc()
		g.logger.Debug().
			Int64("limit", g.limit).
			Msg("Gate full, waiting for slot")

		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire gate slot: %w", err)
		}
	}

	n := g.inflight.Add(1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	reviewInflightRequests.Inc()

	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		g.inflight.Add(-1)
		reviewInflightRequests.Dec()
		g.sem.Release(1)
	}, nil
}

// Limit returns the configured slot count.
func (g *Gate) Limit() int {
	return int(g.limit)
}

// InFlight returns the number of slots currently held.
func (g *Gate) InFlight() int {
	return int(g.inflight.Load())
}

// Peak returns the highest number of simultaneously held slots observed.
func (g *Gate) Peak() int {
	return int(g.peak.Load())
}
