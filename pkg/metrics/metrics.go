// Package metrics exposes the Prometheus registry used by the harvester.
// Metrics are defined in the packages that update them (client, pagination,
// cache, ratelimit) via promauto; this package serves them and documents them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the harvester.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - review_requests_total{outcome} (Counter): Page fetch attempts by outcome, plus cache_hit
//   - review_request_duration_seconds (Histogram): HTTP round trip per attempt
//   - review_errors_total{class} (Counter): Failed attempts by outcome class
//
// Gate Metrics (pkg/ratelimit):
//   - review_inflight_requests (Gauge): Attempts currently holding a gate slot
//   - review_gate_waits_total (Counter): Attempts that had to wait for a slot
//
// Pagination Metrics (pkg/pagination):
//   - review_pages_total (Counter): Pages fetched successfully
//   - review_accepted_total (Counter): Reviews that passed the playtime filter
//   - review_retries_total{outcome} (Counter): Retries scheduled by outcome
//   - review_retry_backoff_seconds{outcome} (Histogram): Backoff before each retry
//   - review_retry_exhausted_total{outcome} (Counter): Pages that used up the retry budget
//
// Cache Metrics (pkg/cache):
//   - review_cache_hits_total{layer="redis"} (Counter): Page cache hits
//   - review_cache_misses_total (Counter): Page cache misses
//   - review_cache_size_bytes{layer="redis"} (Gauge): Size of the last stored entry
//   - review_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(review_cache_hits_total[5m])) /
//   (sum(rate(review_cache_hits_total[5m])) + sum(rate(review_cache_misses_total[5m])))
//
//   # Rate limited share of attempts
//   rate(review_requests_total{outcome="rate_limited"}[5m]) / rate(review_requests_total[5m])
//
//   # Acceptance per page
//   rate(review_accepted_total[5m]) / rate(review_pages_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(review_request_duration_seconds_bucket[5m]))
