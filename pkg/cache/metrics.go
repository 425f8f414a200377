package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks page cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_cache_hits_total",
			Help: "Total number of review page cache hits",
		},
	)

	// CacheMisses tracks page cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_cache_misses_total",
			Help: "Total number of review page cache misses",
		},
	)

	// CacheSize tracks bytes moved through the cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "review_cache_size_bytes",
			Help: "Bytes written to or served from the review page cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
