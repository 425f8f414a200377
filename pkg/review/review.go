// Package review defines the review API data model and the acceptance filter
// applied to each raw review record.
package review

import (
	"encoding/json"
	"strings"
)

// Sentinel is the cursor value that requests the first page. The API also
// returns it when there are no further pages.
const Sentinel = "*"

// DefaultLanguage is the review locale requested from the API.
const DefaultLanguage = "russian"

// DefaultPageSize is the number of reviews requested per page.
const DefaultPageSize = 20

// FetchRequest describes one page request. It is immutable per attempt.
type FetchRequest struct {
	ProductID int
	Cursor    string
	PageSize  int
	Language  string
}

// RawRecord is a single review as returned by the API.
type RawRecord struct {
	Text                  string `json:"text"`
	AuthorPlaytimeSeconds int    `json:"author_playtime_seconds"`
}

// OutcomeKind classifies the result of a single fetch attempt.
type OutcomeKind string

const (
	// OutcomeSuccess is a 200 response with success=1.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeRateLimited is a 429 response.
	OutcomeRateLimited OutcomeKind = "rate_limited"

	// OutcomeServerError is any other non-200 response.
	OutcomeServerError OutcomeKind = "server_error"

	// OutcomeTransportError covers DNS, reset, refused and timeouts.
	OutcomeTransportError OutcomeKind = "transport_error"

	// OutcomeMalformed is a 200 response with success!=1 or an unparseable body.
	OutcomeMalformed OutcomeKind = "malformed_response"
)

// Outcome is the classified result of one fetch attempt.
// Records and NextCursor are only meaningful when Kind is OutcomeSuccess.
type Outcome struct {
	Kind       OutcomeKind
	Records    []RawRecord
	NextCursor string
	StatusCode int
	Err        error
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Page is the JSON body of the appreviews endpoint.
type Page struct {
	Success int          `json:"success"`
	Reviews []PageReview `json:"reviews"`
	Cursor  string       `json:"cursor"`
}

// PageReview is one entry of Page.Reviews.
type PageReview struct {
	Review string `json:"review"`
	Author struct {
		PlaytimeForever int `json:"playtime_forever"`
	} `json:"author"`
}

// DecodePage parses an appreviews response body.
func DecodePage(body []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Records converts the decoded reviews into RawRecords, preserving order.
func (p *Page) Records() []RawRecord {
	records := make([]RawRecord, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		records = append(records, RawRecord{
			Text:                  r.Review,
			AuthorPlaytimeSeconds: r.Author.PlaytimeForever,
		})
	}
	return records
}

// IsTerminalCursor reports whether cursor ends pagination.
func IsTerminalCursor(cursor string) bool {
	return cursor == "" || cursor == Sentinel
}

// Accept reports whether a record passes the engagement threshold and has
// non-blank text.
func Accept(r RawRecord, minPlaytimeSeconds int) bool {
	return r.AuthorPlaytimeSeconds >= minPlaytimeSeconds && strings.TrimSpace(r.Text) != ""
}

// FilterTexts returns the trimmed texts of all accepted records in order.
func FilterTexts(records []RawRecord, minPlaytimeSeconds int) []string {
	var texts []string
	for _, r := range records {
		if Accept(r, minPlaytimeSeconds) {
			texts = append(texts, strings.TrimSpace(r.Text))
		}
	}
	return texts
}
