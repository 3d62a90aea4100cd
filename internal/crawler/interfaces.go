package crawler

import (
	"context"

	"github.com/JakeFAU/jobpost-scraper/internal/job"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns a job posting page into a record.
type Extractor interface {
	Extract(jobURL string, body []byte) (job.Record, error)
}

// Gate is a counting primitive bounding in-flight fetches.
// *semaphore.Weighted satisfies it.
type Gate interface {
	Acquire(ctx context.Context, n int64) error
	Release(n int64)
}

// Tracker counts successfully processed URLs. Implementations must be safe for
// concurrent use.
type Tracker interface {
	Increment() int
}

// Limiter throttles requests per host.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Processor produces exactly one outcome for a URL.
type Processor interface {
	Process(ctx context.Context, gate Gate, tracker Tracker, url string) job.Outcome
}
