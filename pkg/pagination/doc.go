// Package pagination drives cursor-chained retrieval of review pages.
//
// The review API hands out an opaque cursor with every page, so page N+1 can
// only be requested after page N has been classified. The paginator therefore
// runs one logical loop per run: it requests a page, retries it according to
// a fixed per-outcome backoff table, filters the records, advances the cursor
// and reports progress. Concurrency across attempts is bounded by the gate
// inside the fetcher, not here.
//
// Example usage:
//
//	p := pagination.NewPaginator(reviewClient, pagination.DefaultConfig())
//	state := p.Run(ctx, pagination.NewRunConfig(252490, 3600, 20), func(pr pagination.Progress) {
//		fmt.Printf("page %d: %d accepted (%.0f%%)\n", pr.PageIndex, pr.AcceptedCount, pr.Fraction*100)
//	})
//
// The loop stops when:
//   - the API returns an empty cursor or the "*" sentinel
//   - MaxPages pages have been processed
//   - a page fails MaxAttempts times in a row (the run keeps what it has)
//   - the context is cancelled
//
// A cursor that cycles through other values is not detected; MaxPages bounds
// the loop in that case.
package pagination
