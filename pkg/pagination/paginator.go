package pagination

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/review-harvester/pkg/ratelimit"
	"github.com/Sternrassler/review-harvester/pkg/review"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	reviewPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_pages_total",
		Help: "Total number of review pages processed",
	})

	reviewAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_accepted_total",
		Help: "Total number of reviews accepted by the playtime filter",
	})
)

// Page limits of a run.
const (
	MaxPagesLimit   = 150
	DefaultMaxPages = 20
)

// PageFetcher performs one classified fetch attempt for one page.
type PageFetcher interface {
	Fetch(ctx context.Context, req review.FetchRequest) review.Outcome
}

// RunConfig is fixed at run start. The in-flight attempt limit is not part of
// it: the fetcher's gate enforces ratelimit.DefaultConcurrencyLimit.
type RunConfig struct {
	ProductID          int
	MinPlaytimeSeconds int
	MaxPages           int
	PageSize           int
}

// NewRunConfig builds a RunConfig with the fixed page size, clamping maxPages.
// The other values are taken as given and checked by the caller.
func NewRunConfig(productID, minPlaytimeSeconds, maxPages int) RunConfig {
	return RunConfig{
		ProductID:          productID,
		MinPlaytimeSeconds: minPlaytimeSeconds,
		MaxPages:           ClampMaxPages(maxPages),
		PageSize:           review.DefaultPageSize,
	}
}

// ClampMaxPages caps n at MaxPagesLimit; values below 1 become DefaultMaxPages.
func ClampMaxPages(n int) int {
	switch {
	case n < 1:
		return DefaultMaxPages
	case n > MaxPagesLimit:
		return MaxPagesLimit
	default:
		return n
	}
}

// Progress is reported once per completed page.
type Progress struct {
	PageIndex     int
	AcceptedCount int
	Fraction      float64
}

// ProgressFunc receives progress from the pagination loop. It is called on
// the loop's goroutine and should return quickly.
type ProgressFunc func(Progress)

// RunState is the outcome of one pagination loop.
type RunState struct {
	PagesCompleted int
	Cursor         string
	Accepted       []string

	// Exhausted is set when the API signalled there are no more pages.
	Exhausted bool

	// Aborted is set when a page used up its retry budget.
	Aborted bool

	// FailedAttempts lists the outcome of every attempt of the aborted page.
	FailedAttempts []review.OutcomeKind

	// Cancelled is set when the context ended the loop.
	Cancelled bool
}

// Partial reports whether the run stopped before the API or the page cap
// ended it.
func (s RunState) Partial() bool {
	return s.Aborted || s.Cancelled
}

// Config holds paginator configuration.
type Config struct {
	// Retry is the per-page retry policy
	Retry RetryPolicy

	// PageInterval is the pacing delay between consecutive pages
	PageInterval time.Duration

	// Sleep waits between retries (nil uses a timer)
	Sleep SleepFunc
}

// DefaultConfig returns the default paginator configuration.
func DefaultConfig() Config {
	return Config{
		Retry:        DefaultRetryPolicy(),
		PageInterval: ratelimit.DefaultPageInterval,
	}
}

// Paginator runs the cursor-following loop.
type Paginator struct {
	fetcher PageFetcher
	config  Config
	pacer   *ratelimit.Pacer
	sleep   SleepFunc
	logger  zerolog.Logger
}

// NewPaginator creates a new paginator.
func NewPaginator(fetcher PageFetcher, config Config) *Paginator {
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryPolicy()
	}

	sleep := config.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
		pacer:   ratelimit.NewPacer(config.PageInterval),
		sleep:   sleep,
		logger:  log.With().Str("component", "paginator").Logger(),
	}
}

// Run fetches pages for cfg.ProductID until the cursor ends, cfg.MaxPages is
// reached, a page exhausts its retries, or ctx is cancelled. Per-page failures
// never surface as errors; the returned state says how the loop ended.
func (p *Paginator) Run(ctx context.Context, cfg RunConfig, onProgress ProgressFunc) RunState {
	if cfg.MaxPages < 1 || cfg.MaxPages > MaxPagesLimit {
		cfg.MaxPages = ClampMaxPages(cfg.MaxPages)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = review.DefaultPageSize
	}

	start := time.Now()
	logger := p.logger.With().Int("product_id", cfg.ProductID).Logger()

	state := RunState{
		Cursor:   review.Sentinel,
		Accepted: make([]string, 0),
	}

	logger.Info().
		Int("max_pages", cfg.MaxPages).
		Int("min_playtime_seconds", cfg.MinPlaytimeSeconds).
		Msg("Starting pagination")

	for state.PagesCompleted < cfg.MaxPages {
		if err := p.pacer.Wait(ctx); err != nil {
			state.Cancelled = true
			break
		}

		logger.Debug().
			Int("page", state.PagesCompleted+1).
			Str("cursor", state.Cursor).
			Msg("Loading page")

		req := review.FetchRequest{
			ProductID: cfg.ProductID,
			Cursor:    state.Cursor,
			PageSize:  cfg.PageSize,
		}

		outcome, failed, err := p.fetchWithRetry(ctx, req)
		p.pacer.Done()
		if err != nil {
			if errors.Is(err, ErrContextCancelled) {
				state.Cancelled = true
			} else {
				state.Aborted = true
				state.FailedAttempts = failed
			}
			logger.Warn().
				Err(err).
				Int("page", state.PagesCompleted+1).
				Int("accepted", len(state.Accepted)).
				Msg("Stopping pagination early - keeping partial results")
			break
		}

		texts := review.FilterTexts(outcome.Records, cfg.MinPlaytimeSeconds)
		state.Accepted = append(state.Accepted, texts...)
		state.PagesCompleted++

		reviewPagesTotal.Inc()
		reviewAcceptedTotal.Add(float64(len(texts)))

		if onProgress != nil {
			onProgress(Progress{
				PageIndex:     state.PagesCompleted,
				AcceptedCount: len(state.Accepted),
				Fraction:      float64(state.PagesCompleted) / float64(cfg.MaxPages),
			})
		}

		if review.IsTerminalCursor(outcome.NextCursor) {
			state.Cursor = ""
			state.Exhausted = true
			break
		}
		state.Cursor = outcome.NextCursor
	}

	logger.Info().
		Int("pages", state.PagesCompleted).
		Int("accepted", len(state.Accepted)).
		Bool("exhausted", state.Exhausted).
		Bool("aborted", state.Aborted).
		Bool("cancelled", state.Cancelled).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return state
}
