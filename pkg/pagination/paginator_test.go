package pagination

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/review-harvester/internal/testutil"
	"github.com/Sternrassler/review-harvester/pkg/client"
	"github.com/Sternrassler/review-harvester/pkg/review"
)

// scriptedFetcher returns queued outcomes per cursor; the last one repeats.
type scriptedFetcher struct {
	mu      sync.Mutex
	script  map[string][]review.Outcome
	cursors []string
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{script: make(map[string][]review.Outcome)}
}

func (f *scriptedFetcher) on(cursor string, outcomes ...review.Outcome) *scriptedFetcher {
	f.script[cursor] = outcomes
	return f
}

func (f *scriptedFetcher) Fetch(ctx context.Context, req review.FetchRequest) review.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cursors = append(f.cursors, req.Cursor)
	queue := f.script[req.Cursor]
	if len(queue) == 0 {
		return review.Outcome{Kind: review.OutcomeServerError, StatusCode: 404, Err: errors.New("unscripted cursor")}
	}
	out := queue[0]
	if len(queue) > 1 {
		f.script[req.Cursor] = queue[1:]
	}
	return out
}

func (f *scriptedFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cursors)
}

func page(next string, records ...review.RawRecord) review.Outcome {
	return review.Outcome{Kind: review.OutcomeSuccess, Records: records, NextCursor: next, StatusCode: 200}
}

func failure(kind review.OutcomeKind) review.Outcome {
	return review.Outcome{Kind: kind, Err: errors.New(string(kind))}
}

func rec(text string, playtime int) review.RawRecord {
	return review.RawRecord{Text: text, AuthorPlaytimeSeconds: playtime}
}

// sleepRecorder captures backoff waits without sleeping.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestPaginator(f PageFetcher, rec *sleepRecorder) *Paginator {
	cfg := DefaultConfig()
	cfg.PageInterval = 0
	cfg.Sleep = rec.sleep
	return NewPaginator(f, cfg)
}

func TestClampMaxPages(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 20},
		{-5, 20},
		{1, 1},
		{20, 20},
		{150, 150},
		{151, 150},
		{10000, 150},
	}

	for _, tt := range tests {
		if got := ClampMaxPages(tt.in); got != tt.want {
			t.Errorf("ClampMaxPages(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewRunConfig(t *testing.T) {
	cfg := NewRunConfig(252490, 3600, 0)

	if cfg.MaxPages != DefaultMaxPages {
		t.Errorf("MaxPages = %d, want %d", cfg.MaxPages, DefaultMaxPages)
	}
	if cfg.PageSize != 20 {
		t.Errorf("PageSize = %d, want 20", cfg.PageSize)
	}
	if cfg.MinPlaytimeSeconds != 3600 {
		t.Errorf("MinPlaytimeSeconds = %d, want 3600", cfg.MinPlaytimeSeconds)
	}

	// negative thresholds are left for validation to reject
	if got := NewRunConfig(730, -1, 5).MinPlaytimeSeconds; got != -1 {
		t.Errorf("MinPlaytimeSeconds = %d, want -1", got)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", policy.MaxAttempts)
	}

	tests := []struct {
		kind review.OutcomeKind
		want time.Duration
	}{
		{review.OutcomeRateLimited, 2 * time.Second},
		{review.OutcomeServerError, 1 * time.Second},
		{review.OutcomeTransportError, 1 * time.Second},
		{review.OutcomeMalformed, 1 * time.Second},
		{"unknown", DefaultBackoff},
	}
	for _, tt := range tests {
		if got := policy.BackoffFor(tt.kind); got != tt.want {
			t.Errorf("BackoffFor(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestRun_SinglePageFilter(t *testing.T) {
	f := newScriptedFetcher().on("*", page("*",
		rec("good text", 5000),
		rec("short", 100),
	))
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 3600, 20), nil)

	if want := []string{"good text"}; !reflect.DeepEqual(state.Accepted, want) {
		t.Errorf("Accepted = %v, want %v", state.Accepted, want)
	}
	if state.PagesCompleted != 1 {
		t.Errorf("PagesCompleted = %d, want 1", state.PagesCompleted)
	}
	if !state.Exhausted {
		t.Error("Exhausted = false, want true")
	}
}

func TestRun_RateLimitedThreeTimesAborts(t *testing.T) {
	f := newScriptedFetcher().on("*", failure(review.OutcomeRateLimited))
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 0, 1), nil)

	if got := f.calls(); got != 3 {
		t.Errorf("fetch calls = %d, want exactly 3", got)
	}
	if len(state.Accepted) != 0 {
		t.Errorf("Accepted = %v, want empty", state.Accepted)
	}
	if state.Accepted == nil {
		t.Error("Accepted should be an empty slice, not nil")
	}
	if !state.Aborted {
		t.Error("Aborted = false, want true")
	}
	if want := []time.Duration{2 * time.Second, 2 * time.Second}; !reflect.DeepEqual(sleeps.waits, want) {
		t.Errorf("backoff waits = %v, want %v", sleeps.waits, want)
	}
	wantKinds := []review.OutcomeKind{review.OutcomeRateLimited, review.OutcomeRateLimited, review.OutcomeRateLimited}
	if !reflect.DeepEqual(state.FailedAttempts, wantKinds) {
		t.Errorf("FailedAttempts = %v, want %v", state.FailedAttempts, wantKinds)
	}
}

func TestRun_SentinelCursorStops(t *testing.T) {
	f := newScriptedFetcher().on("*", page("*", rec("a", 1)))
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 0, 20), nil)

	if got := f.calls(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	if state.PagesCompleted != 1 {
		t.Errorf("PagesCompleted = %d, want 1", state.PagesCompleted)
	}
}

func TestRun_EmptyCursorStops(t *testing.T) {
	f := newScriptedFetcher().on("*", page("", rec("a", 1)))
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 0, 20), nil)

	if got := f.calls(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	if !state.Exhausted {
		t.Error("Exhausted = false, want true")
	}
}

func TestRun_OrderAcrossPages(t *testing.T) {
	f := newScriptedFetcher().
		on("*", page("c2", rec("p1-a", 10), rec("p1-drop", 1), rec("p1-b", 10))).
		on("c2", page("c3", rec("p2-a", 10))).
		on("c3", page("*", rec("p3-drop", 0), rec("p3-a", 99)))
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 5, 20), nil)

	want := []string{"p1-a", "p1-b", "p2-a", "p3-a"}
	if !reflect.DeepEqual(state.Accepted, want) {
		t.Errorf("Accepted = %v, want %v", state.Accepted, want)
	}
	if want := []string{"*", "c2", "c3"}; !reflect.DeepEqual(f.cursors, want) {
		t.Errorf("cursors requested = %v, want %v", f.cursors, want)
	}
}

func TestRun_CyclingCursorBoundedByMaxPages(t *testing.T) {
	f := newScriptedFetcher().
		on("*", page("loop", rec("x", 1))).
		on("loop", page("loop", rec("y", 1)))
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 0, 5), nil)

	if state.PagesCompleted != 5 {
		t.Errorf("PagesCompleted = %d, want 5", state.PagesCompleted)
	}
	if got := f.calls(); got != 5 {
		t.Errorf("fetch calls = %d, want 5", got)
	}
	if state.Exhausted || state.Partial() {
		t.Errorf("state = %+v, want page cap termination", state)
	}
}

func TestRun_BackoffPerOutcome(t *testing.T) {
	f := newScriptedFetcher().on("*",
		failure(review.OutcomeServerError),
		failure(review.OutcomeMalformed),
		page("*", rec("finally", 1)),
	)
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 0, 3), nil)

	if want := []string{"finally"}; !reflect.DeepEqual(state.Accepted, want) {
		t.Errorf("Accepted = %v, want %v", state.Accepted, want)
	}
	if want := []time.Duration{time.Second, time.Second}; !reflect.DeepEqual(sleeps.waits, want) {
		t.Errorf("backoff waits = %v, want %v", sleeps.waits, want)
	}
	if state.Aborted {
		t.Error("Aborted = true, want false")
	}
}

func TestRun_AbortKeepsEarlierPages(t *testing.T) {
	f := newScriptedFetcher().
		on("*", page("c2", rec("kept", 10))).
		on("c2", failure(review.OutcomeTransportError))
	sleeps := &sleepRecorder{}

	state := newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 0, 10), nil)

	if want := []string{"kept"}; !reflect.DeepEqual(state.Accepted, want) {
		t.Errorf("Accepted = %v, want %v", state.Accepted, want)
	}
	if state.PagesCompleted != 1 {
		t.Errorf("PagesCompleted = %d, want 1", state.PagesCompleted)
	}
	if !state.Aborted || !state.Partial() {
		t.Errorf("state = %+v, want aborted", state)
	}
	if state.Cursor != "c2" {
		t.Errorf("Cursor = %q, want the failed page's cursor", state.Cursor)
	}
}

func TestRun_ProgressReports(t *testing.T) {
	f := newScriptedFetcher().
		on("*", page("c2", rec("a", 1), rec("b", 1))).
		on("c2", page("c3", rec("c", 1))).
		on("c3", page("*"))
	sleeps := &sleepRecorder{}

	var got []Progress
	newTestPaginator(f, sleeps).Run(context.Background(), NewRunConfig(730, 0, 4), func(p Progress) {
		got = append(got, p)
	})

	want := []Progress{
		{PageIndex: 1, AcceptedCount: 2, Fraction: 0.25},
		{PageIndex: 2, AcceptedCount: 3, Fraction: 0.5},
		{PageIndex: 3, AcceptedCount: 3, Fraction: 0.75},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %+v, want %+v", got, want)
	}
}

func TestRun_CancelledDuringBackoff(t *testing.T) {
	f := newScriptedFetcher().
		on("*", page("c2", rec("kept", 1))).
		on("c2", failure(review.OutcomeServerError))

	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig()
	cfg.PageInterval = 0
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	state := NewPaginator(f, cfg).Run(ctx, NewRunConfig(730, 0, 10), nil)

	if !state.Cancelled {
		t.Error("Cancelled = false, want true")
	}
	if state.Aborted {
		t.Error("Aborted = true, want false for a cancelled run")
	}
	if want := []string{"kept"}; !reflect.DeepEqual(state.Accepted, want) {
		t.Errorf("Accepted = %v, want %v", state.Accepted, want)
	}
}

func TestRun_WithClientAgainstMockAPI(t *testing.T) {
	mock := testutil.NewMockReviewAPI()
	defer mock.Close()

	mock.SetPage("*",
		testutil.NewRateLimitResponse(),
		testutil.NewPageResponse("AoJ4",
			testutil.MockReview{Text: "good text", PlaytimeSeconds: 5000},
			testutil.MockReview{Text: "short", PlaytimeSeconds: 100},
		),
	)
	mock.SetPage("AoJ4", testutil.NewPageResponse("*",
		testutil.MockReview{Text: "  also good  ", PlaytimeSeconds: 7200},
	))

	ccfg := client.DefaultConfig()
	ccfg.BaseURL = mock.URL()
	c, err := client.New(ccfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	defer c.Close()

	sleeps := &sleepRecorder{}
	state := newTestPaginator(c, sleeps).Run(context.Background(), NewRunConfig(252490, 3600, 20), nil)

	if want := []string{"good text", "also good"}; !reflect.DeepEqual(state.Accepted, want) {
		t.Errorf("Accepted = %v, want %v", state.Accepted, want)
	}
	if want := []string{"*", "*", "AoJ4"}; !reflect.DeepEqual(mock.GetCursors(), want) {
		t.Errorf("cursors = %v, want %v", mock.GetCursors(), want)
	}
	if want := []time.Duration{2 * time.Second}; !reflect.DeepEqual(sleeps.waits, want) {
		t.Errorf("backoff waits = %v, want %v", sleeps.waits, want)
	}
	if c.Gate().Peak() > ccfg.ConcurrencyLimit {
		t.Errorf("gate peak = %d, exceeds %d", c.Gate().Peak(), ccfg.ConcurrencyLimit)
	}
}
