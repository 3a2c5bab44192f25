// Package fetcher defines the page retrieval contract shared by the HTTP and
// headless fetchers.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request describes a single page retrieval.
type Request struct {
	URL     string
	Headers http.Header
}

// Page is a retrieved document.
type Page struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Page, error)
}

// Detector decides whether a fetched page needs a headless render.
type Detector interface {
	ShouldPromote(page Page) bool
}
