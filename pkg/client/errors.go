package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/review-harvester/pkg/review"
)

// Common errors returned inside fetch outcomes.
var (
	// ErrUnsuccessful is returned when a 200 body carries success != 1.
	ErrUnsuccessful = errors.New("review api reported success=0")

	// ErrMalformedBody is returned when a 200 body is not valid JSON.
	ErrMalformedBody = errors.New("malformed review page body")

	// ErrTimeout is returned when an attempt exceeds its timeout.
	ErrTimeout = errors.New("request timed out")
)

// FetchError describes why a single fetch attempt did not succeed.
type FetchError struct {
	Kind       review.OutcomeKind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("review %s (status %d): %s: %v",
			e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("review %s (status %d): %s",
		e.Kind, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status to an outcome kind.
// 200 maps to OutcomeSuccess pending body validation.
func classifyStatus(statusCode int) review.OutcomeKind {
	switch {
	case statusCode == http.StatusOK:
		return review.OutcomeSuccess
	case statusCode == http.StatusTooManyRequests:
		return review.OutcomeRateLimited
	default:
		return review.OutcomeServerError
	}
}

// classifyTransport turns a connection-level failure into an outcome.
func classifyTransport(err error) review.Outcome {
	message := "transport"
	if errors.Is(err, context.DeadlineExceeded) {
		message = "timeout"
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return review.Outcome{
		Kind: review.OutcomeTransportError,
		Err:  &FetchError{Kind: review.OutcomeTransportError, Message: message, Err: err},
	}
}

// classifyBody validates a 200 body and extracts records and cursor.
func classifyBody(statusCode int, body []byte) review.Outcome {
	page, err := review.DecodePage(body)
	if err != nil {
		return review.Outcome{
			Kind:       review.OutcomeMalformed,
			StatusCode: statusCode,
			Err: &FetchError{
				Kind:       review.OutcomeMalformed,
				StatusCode: statusCode,
				Message:    "decode body",
				Err:        fmt.Errorf("%w: %v", ErrMalformedBody, err),
			},
		}
	}

	if page.Success != 1 {
		return review.Outcome{
			Kind:       review.OutcomeMalformed,
			StatusCode: statusCode,
			Err: &FetchError{
				Kind:       review.OutcomeMalformed,
				StatusCode: statusCode,
				Message:    fmt.Sprintf("success=%d", page.Success),
				Err:        ErrUnsuccessful,
			},
		}
	}

	return review.Outcome{
		Kind:       review.OutcomeSuccess,
		Records:    page.Records(),
		NextCursor: page.Cursor,
		StatusCode: statusCode,
	}
}
