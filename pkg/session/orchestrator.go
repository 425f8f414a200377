// Package session owns the lifecycle of a harvesting run: it validates input,
// drives the paginator off the caller's goroutine, persists the accepted
// texts and reports progress and completion through an event channel.
package session

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Sternrassler/review-harvester/pkg/catalog"
	"github.com/Sternrassler/review-harvester/pkg/pagination"
	"github.com/Sternrassler/review-harvester/pkg/review"
	"github.com/Sternrassler/review-harvester/pkg/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SecondsPerHour converts the minHours input to the API's playtime unit.
const SecondsPerHour = 3600

// MaxMinHours is the largest minHours whose value in seconds fits an int.
const MaxMinHours = math.MaxInt / SecondsPerHour

// Config holds orchestrator configuration.
type Config struct {
	// OutputDir receives the review text file ("" means the working directory)
	OutputDir string

	// Paginator configures retries and pacing
	Paginator pagination.Config
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		OutputDir: ".",
		Paginator: pagination.DefaultConfig(),
	}
}

// Result is handed to the caller when a run completes.
type Result struct {
	RunID              string
	ProductID          int
	MinPlaytimeSeconds int
	// MinHours is the threshold in whole hours, rounded down.
	MinHours       int
	AcceptedTexts  []string
	PagesCompleted int
	MaxPages       int
	// Partial is set when a page exhausted its retries and pagination stopped early.
	Partial    bool
	OutputPath string
	Duration   time.Duration
}

// Status is "completed" or "completed_partial".
func (r Result) Status() string {
	if r.Partial {
		return "completed_partial"
	}
	return "completed"
}

// Orchestrator runs review harvesting sessions.
type Orchestrator struct {
	paginator *pagination.Paginator
	config    Config
	logger    zerolog.Logger
}

// New creates an orchestrator on top of a page fetcher.
func New(fetcher pagination.PageFetcher, cfg Config) *Orchestrator {
	return &Orchestrator{
		paginator: pagination.NewPaginator(fetcher, cfg.Paginator),
		config:    cfg,
		logger:    log.With().Str("component", "session").Logger(),
	}
}

// Validate checks cfg before a run and returns the effective configuration.
func Validate(cfg pagination.RunConfig) (pagination.RunConfig, error) {
	if cfg.ProductID <= 0 {
		return cfg, &ValidationError{Field: "product id", Value: cfg.ProductID, Reason: "must be a positive integer"}
	}
	if cfg.MinPlaytimeSeconds < 0 {
		return cfg, &ValidationError{Field: "min playtime", Value: cfg.MinPlaytimeSeconds, Reason: "must be >= 0"}
	}

	cfg.MaxPages = pagination.ClampMaxPages(cfg.MaxPages)
	if cfg.PageSize <= 0 {
		cfg.PageSize = review.DefaultPageSize
	}
	return cfg, nil
}

// Execute validates cfg, runs pagination and persists the accepted texts.
// Per-page failures never produce an error; only validation, persistence,
// a first page that never reached the server, or cancellation do.
func (o *Orchestrator) Execute(ctx context.Context, cfg pagination.RunConfig, onProgress pagination.ProgressFunc) (Result, error) {
	return o.execute(ctx, uuid.NewString(), cfg, onProgress)
}

func (o *Orchestrator) execute(ctx context.Context, runID string, cfg pagination.RunConfig, onProgress pagination.ProgressFunc) (Result, error) {
	cfg, err := Validate(cfg)
	if err != nil {
		return Result{RunID: runID}, err
	}

	start := time.Now()
	logger := o.logger.With().Str("run_id", runID).Int("product_id", cfg.ProductID).Logger()

	state := o.paginator.Run(ctx, cfg, onProgress)

	result := Result{
		RunID:              runID,
		ProductID:          cfg.ProductID,
		MinPlaytimeSeconds: cfg.MinPlaytimeSeconds,
		MinHours:           cfg.MinPlaytimeSeconds / SecondsPerHour,
		AcceptedTexts:  state.Accepted,
		PagesCompleted: state.PagesCompleted,
		MaxPages:       cfg.MaxPages,
		Partial:        state.Partial(),
	}

	if state.Cancelled {
		logger.Warn().Int("pages", state.PagesCompleted).Msg("Run abandoned")
		return result, &RunError{RunID: runID, Cause: fmt.Errorf("run abandoned: %w", context.Cause(ctx))}
	}

	if state.PagesCompleted == 0 && state.Aborted && allTransport(state.FailedAttempts) {
		logger.Error().Msg("First page never reached the review API")
		return result, &RunError{RunID: runID, Cause: ErrNoConnectivity}
	}

	path, err := storage.WriteReviews(o.config.OutputDir, cfg.ProductID, cfg.MinPlaytimeSeconds, state.Accepted)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist reviews")
		return result, err
	}

	result.OutputPath = path
	result.Duration = time.Since(start)

	logger.Info().
		Int("pages", result.PagesCompleted).
		Int("accepted", len(result.AcceptedTexts)).
		Str("status", result.Status()).
		Str("path", path).
		Dur("duration", result.Duration).
		Msg("Run complete")

	return result, nil
}

// StartRun resolves and validates caller input, then runs the session on its
// own goroutine. Validation failures are returned immediately and no run is
// started. The handle streams progress and exactly one terminal event.
func (o *Orchestrator) StartRun(ctx context.Context, productInput string, minHours, maxPages int) (*Handle, error) {
	productID, err := catalog.Resolve(productInput)
	if err != nil {
		return nil, &ValidationError{Field: "product", Value: fmt.Sprintf("%q", productInput), Reason: "not resolvable", Err: err}
	}
	if minHours < 0 {
		return nil, &ValidationError{Field: "min hours", Value: minHours, Reason: "must be >= 0"}
	}
	if minHours > MaxMinHours {
		return nil, &ValidationError{Field: "min hours", Value: minHours, Reason: fmt.Sprintf("must be <= %d", MaxMinHours)}
	}

	cfg, err := Validate(pagination.NewRunConfig(productID, minHours*SecondsPerHour, maxPages))
	if err != nil {
		return nil, err
	}

	h := newHandle(uuid.NewString(), cfg.MaxPages)

	go func() {
		h.setState(StateRunning)
		result, err := o.execute(ctx, h.ID, cfg, h.emitProgress)
		if err != nil {
			h.finish(Event{Kind: EventFailed, Err: err, Message: err.Error()})
			return
		}
		h.finish(Event{Kind: EventDone, Result: &result})
	}()

	return h, nil
}

// allTransport reports whether every attempt failed before reaching the server.
func allTransport(kinds []review.OutcomeKind) bool {
	if len(kinds) == 0 {
		return false
	}
	for _, k := range kinds {
		if k != review.OutcomeTransportError {
			return false
		}
	}
	return true
}
