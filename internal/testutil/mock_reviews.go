// Package testutil provides testing utilities for the review harvester.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock review API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockReview is a review entry rendered into a mock page body.
type MockReview struct {
	Text            string
	PlaytimeSeconds int
}

// MockReviewAPI is a scriptable mock of the /appreviews endpoint.
// Responses are keyed by the request cursor; each cursor holds a queue whose
// last element repeats once the queue is drained.
type MockReviewAPI struct {
	server *httptest.Server
	mu     sync.Mutex
	pages  map[string][]MockResponse

	// Tracking
	requestCount int
	cursors      []string
	lastQuery    url.Values
	lastHeader   http.Header
	lastPath     string
	inflight     int
	peakInflight int
}

// NewMockReviewAPI creates a new mock review API server.
func NewMockReviewAPI() *MockReviewAPI {
	mock := &MockReviewAPI{
		pages: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

func (m *MockReviewAPI) handle(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")

	m.mu.Lock()
	m.requestCount++
	m.cursors = append(m.cursors, cursor)
	m.lastQuery = r.URL.Query()
	m.lastHeader = r.Header.Clone()
	m.lastPath = r.URL.Path
	m.inflight++
	if m.inflight > m.peakInflight {
		m.peakInflight = m.inflight
	}

	resp, ok := m.next(cursor)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if !ok {
		resp = NewPageResponse("")
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// next pops the next scripted response for cursor. Caller holds m.mu.
func (m *MockReviewAPI) next(cursor string) (MockResponse, bool) {
	queue, ok := m.pages[cursor]
	if !ok || len(queue) == 0 {
		return MockResponse{}, false
	}
	resp := queue[0]
	if len(queue) > 1 {
		m.pages[cursor] = queue[1:]
	}
	return resp, true
}

// URL returns the mock server URL.
func (m *MockReviewAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockReviewAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and scripted pages.
func (m *MockReviewAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[string][]MockResponse)
	m.requestCount = 0
	m.cursors = nil
	m.lastQuery = nil
	m.lastHeader = nil
	m.lastPath = ""
	m.peakInflight = 0
}

// SetPage scripts the responses returned for requests carrying cursor.
func (m *MockReviewAPI) SetPage(cursor string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[cursor] = responses
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockReviewAPI) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// GetCursors returns the cursors of all requests in arrival order.
func (m *MockReviewAPI) GetCursors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cursors...)
}

// GetLastQuery returns the query of the most recent request.
func (m *MockReviewAPI) GetLastQuery() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockReviewAPI) GetLastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

// GetLastPath returns the URL path of the most recent request.
func (m *MockReviewAPI) GetLastPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPath
}

// GetPeakInFlight returns the highest number of concurrent requests seen.
func (m *MockReviewAPI) GetPeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakInflight
}

type pageBody struct {
	Success int          `json:"success"`
	Cursor  string       `json:"cursor"`
	Reviews []reviewBody `json:"reviews"`
}

type reviewBody struct {
	Review string `json:"review"`
	Author struct {
		PlaytimeForever int `json:"playtime_forever"`
	} `json:"author"`
}

// NewPageResponse creates a 200 success=1 page with the given next cursor.
func NewPageResponse(nextCursor string, reviews ...MockReview) MockResponse {
	body := pageBody{Success: 1, Cursor: nextCursor, Reviews: []reviewBody{}}
	for _, r := range reviews {
		var rb reviewBody
		rb.Review = r.Text
		rb.Author.PlaytimeForever = r.PlaytimeSeconds
		body.Reviews = append(body.Reviews, rb)
	}

	data, _ := json.Marshal(body)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewUnsuccessfulResponse creates a 200 response with success=0.
func NewUnsuccessfulResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"success": 0}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html><body>Service busy</body></html>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

// NewSlowResponse wraps resp with a delay before it is written.
func NewSlowResponse(resp MockResponse, delay time.Duration) MockResponse {
	resp.Delay = delay
	return resp
}
