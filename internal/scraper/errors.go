package scraper

import (
	"errors"
	"fmt"
)

// ErrMaxAttemptsExceeded is returned when retry attempts are exhausted.
var ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")

// ErrEmptyPage is returned when a fetched page has no usable body at all,
// as opposed to a well-formed page that legitimately lists zero tenders.
var ErrEmptyPage = errors.New("page has no parseable content")

// ScrapeError wraps any failure of a full scrape attempt for one source
// after retries are exhausted. Callers isolate it at the job boundary.
type ScrapeError struct {
	SourceID string
	Err      error
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.SourceID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-success HTTP status from a source.
type StatusError struct {
	URL  string
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.Code, e.URL)
}
