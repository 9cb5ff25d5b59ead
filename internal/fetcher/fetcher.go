// Package fetcher retrieves raw listing and detail pages over HTTP.
//
// It performs no retries: the pipeline decides whether a failed fetch
// aborts the run (listing page) or skips a single listing (detail page).
package fetcher

import (
	"context"
	"fmt"
	"time"
)

// Reason classifies why a fetch failed.
type Reason string

const (
	ReasonNetwork    Reason = "network"
	ReasonTimeout    Reason = "timeout"
	ReasonHTTPStatus Reason = "http_status"
)

// FetchError is returned for any failed page retrieval.
type FetchError struct {
	URL    string
	Reason Reason
	Status int // set when Reason == ReasonHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	if e.Reason == ReasonHTTPStatus {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Content represents a fetched page.
type Content struct {
	URL        string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// Fetcher abstracts page fetching so tests can substitute canned pages.
type Fetcher interface {
	// Fetch retrieves page content, failing with *FetchError.
	Fetch(ctx context.Context, url string) (Content, error)
}
