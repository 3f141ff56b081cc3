// Package fetch defines the Fetcher collaborator interface the tracking
// engine pulls document content through, plus a default net/http
// implementation. Grounded on the teacher's internal/httpclient package:
// same builder-configured transport and retry-with-backoff shape, narrowed
// to the one thing the engine needs from it (GET a URL, get bytes back or a
// classified error).
package fetch

import (
	"context"
)

// Result is the outcome of a successful fetch.
type Result struct {
	Content  []byte
	MimeType string
}

// Fetcher retrieves the current content of a document at location. A
// recoverable failure (4xx/5xx, timeout, connection refused) must be
// returned as *errs.InaccessibleContentError; any other error aborts the
// batch.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (Result, error)
}
