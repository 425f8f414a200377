package cache

import (
	"time"

	"github.com/Sternrassler/review-harvester/pkg/review"
)

// DefaultTTL is how long a fetched page stays cached.
const DefaultTTL = 10 * time.Minute

// PageEntry represents a cached review page.
type PageEntry struct {
	// Records are the raw reviews of the page, in API order
	Records []review.RawRecord `json:"records"`

	// NextCursor is the cursor the API returned with this page
	NextCursor string `json:"next_cursor"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this page
	CachedAt time.Time `json:"cached_at"`
}

// NewPageEntry builds an entry from a successful outcome.
// Returns nil for any other outcome kind.
func NewPageEntry(outcome review.Outcome, ttl time.Duration) *PageEntry {
	if !outcome.OK() {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &PageEntry{
		Records:    outcome.Records,
		NextCursor: outcome.NextCursor,
		Expires:    now.Add(ttl),
		CachedAt:   now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *PageEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *PageEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Outcome converts the entry back into a successful fetch outcome.
func (e *PageEntry) Outcome() review.Outcome {
	return review.Outcome{
		Kind:       review.OutcomeSuccess,
		Records:    e.Records,
		NextCursor: e.NextCursor,
		StatusCode: 200,
	}
}
