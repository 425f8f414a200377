// Package cache provides an optional Redis-backed cache for review pages.
//
// A page is identified by the product, locale, page size and the cursor that
// was used to request it. Because the first page is always requested with the
// "*" cursor, repeated runs for the same product hit the cache page by page
// until they reach a cursor that was never fetched before.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.PageKey{
//		ProductID: 252490,
//		Language:  "russian",
//		PageSize:  20,
//		Cursor:    "*",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the review API, then:
//		_ = manager.Set(ctx, key, cache.NewPageEntry(outcome, cache.DefaultTTL))
//	}
//
// # Metrics
//
//   - review_cache_hits_total - Cache hits
//   - review_cache_misses_total - Cache misses
//   - review_cache_size_bytes - Bytes written to or served from the cache
//   - review_cache_errors_total{operation} - Cache operation errors
//
// Only successful pages are cached. Cache failures never fail a fetch; the
// client logs them and falls through to the network.
package cache
