package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata. Redirects are followed.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// BlobStore persists page artifacts by name.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
	GetObject(ctx context.Context, path string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, path string) error
}

// Scanner counts keyword occurrences in a single page.
type Scanner interface {
	Scan(r io.Reader) (Counts, error)
}

// TaskQueue hands out each task exactly once.
type TaskQueue interface {
	Claim() (Task, bool)
}

// CounterTable accumulates per-keyword totals across workers.
type CounterTable interface {
	Merge(partial Counts)
}

// ReportSink receives the final report after the run completes.
type ReportSink interface {
	Consume(ctx context.Context, report Report) error
}

// Hasher computes a content digest of a fetched page.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
