// Package client provides the review API fetcher: one GET per page, a
// per-attempt timeout, response classification, an optional Redis page cache
// and a shared in-flight request gate. It never retries on its own.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/review-harvester/pkg/cache"
	"github.com/Sternrassler/review-harvester/pkg/ratelimit"
	"github.com/Sternrassler/review-harvester/pkg/review"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for review API requests.
var (
	reviewRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_requests_total",
		Help: "Total review page requests by outcome",
	}, []string{"outcome"})

	reviewRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "review_request_duration_seconds",
		Help:    "Review page request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	})

	reviewErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_errors_total",
		Help: "Total failed review page requests by outcome class",
	}, []string{"class"})
)

// DefaultBaseURL is the public store host serving /appreviews.
const DefaultBaseURL = "https://store.steampowered.com"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client fetches single review pages.
type Client struct {
	httpClient *http.Client
	gate       *ratelimit.Gate
	cache      *cache.Manager
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the review host, without trailing path
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Language is the review locale query parameter
	Language string

	// Timeout applies to each attempt separately
	Timeout time.Duration

	// Concurrency
	ConcurrencyLimit int // Max in-flight attempts

	// Caching (optional, nil disables the page cache)
	Redis    *redis.Client
	CacheTTL time.Duration
}

// DefaultConfig returns the configuration matching the public review API.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		UserAgent:        "review-harvester/0.1.0",
		Language:         review.DefaultLanguage,
		Timeout:          15 * time.Second,
		ConcurrencyLimit: ratelimit.DefaultConcurrencyLimit,
		CacheTTL:         cache.DefaultTTL,
	}
}

// New creates a new review API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.ConcurrencyLimit > ratelimit.DefaultConcurrencyLimit {
		return nil, fmt.Errorf("concurrency limit must be <= %d (got %d)", ratelimit.DefaultConcurrencyLimit, cfg.ConcurrencyLimit)
	}

	if cfg.Language == "" {
		cfg.Language = review.DefaultLanguage
	}

	logger := log.With().Str("component", "review-client").Logger()

	var pageCache *cache.Manager
	if cfg.Redis != nil {
		pageCache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxConnsPerHost:     15,
				MaxIdleConnsPerHost: 15,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		gate:    ratelimit.NewGate(cfg.ConcurrencyLimit, logger),
		cache:   pageCache,
		baseURL: base,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Fetch performs exactly one attempt for the requested page and classifies
// the result. It does not retry.
func (c *Client) Fetch(ctx context.Context, req review.FetchRequest) review.Outcome {
	if req.PageSize <= 0 {
		req.PageSize = review.DefaultPageSize
	}
	if req.Language == "" {
		req.Language = c.config.Language
	}
	if req.Cursor == "" {
		req.Cursor = review.Sentinel
	}

	cacheKey := cache.PageKey{
		ProductID: req.ProductID,
		Language:  req.Language,
		PageSize:  req.PageSize,
		Cursor:    req.Cursor,
	}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			c.logger.Debug().
				Int("product_id", req.ProductID).
				Str("cursor", req.Cursor).
				Msg("Serving page from cache")
			reviewRequestsTotal.WithLabelValues("cache_hit").Inc()
			return entry.Outcome()
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Int("product_id", req.ProductID).Msg("Cache get error")
		}
	}

	outcome := c.fetchRemote(ctx, req)

	reviewRequestsTotal.WithLabelValues(string(outcome.Kind)).Inc()
	if !outcome.OK() {
		reviewErrorsTotal.WithLabelValues(string(outcome.Kind)).Inc()
		c.logger.Warn().
			Int("product_id", req.ProductID).
			Str("cursor", req.Cursor).
			Int("status", outcome.StatusCode).
			Str("outcome", string(outcome.Kind)).
			Err(outcome.Err).
			Msg("Review page request failed")
		return outcome
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, cache.NewPageEntry(outcome, c.cache.TTL())); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache page")
		}
	}

	return outcome
}

// fetchRemote issues the HTTP request while holding a gate slot.
func (c *Client) fetchRemote(ctx context.Context, req review.FetchRequest) review.Outcome {
	release, err := c.gate.Acquire(ctx)
	if err != nil {
		return review.Outcome{
			Kind: review.OutcomeTransportError,
			Err:  &FetchError{Kind: review.OutcomeTransportError, Message: "gate", Err: err},
		}
	}
	defer release()

	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.pageURL(req), nil)
	if err != nil {
		return review.Outcome{
			Kind: review.OutcomeTransportError,
			Err:  &FetchError{Kind: review.OutcomeTransportError, Message: "create request", Err: err},
		}
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Int("product_id", req.ProductID).
		Str("cursor", req.Cursor).
		Msg("Requesting review page")

	startTime := time.Now()
	defer func() {
		reviewRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if kind := classifyStatus(resp.StatusCode); kind != review.OutcomeSuccess {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return review.Outcome{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        &FetchError{Kind: kind, StatusCode: resp.StatusCode, Message: resp.Status},
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		outcome := classifyTransport(err)
		outcome.StatusCode = resp.StatusCode
		return outcome
	}

	return classifyBody(resp.StatusCode, body)
}

// pageURL builds /appreviews/{id}?json=1&language=..&num_per_page=..&cursor=..
func (c *Client) pageURL(req review.FetchRequest) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/appreviews/" + strconv.Itoa(req.ProductID)

	q := url.Values{}
	q.Set("json", "1")
	q.Set("language", req.Language)
	q.Set("num_per_page", strconv.Itoa(req.PageSize))
	q.Set("cursor", req.Cursor)
	u.RawQuery = q.Encode()

	return u.String()
}

// Gate returns the in-flight request gate shared by all fetches.
func (c *Client) Gate() *ratelimit.Gate {
	return c.gate
}

// Close releases idle connections. The Redis client is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
