// Package dispatcher fans a URL list out to concurrent workers behind a
// counting gate and gathers one outcome per URL.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/jobpost-scraper/internal/crawler"
	"github.com/JakeFAU/jobpost-scraper/internal/job"
	"github.com/JakeFAU/jobpost-scraper/internal/progress"
)

// DefaultConcurrency caps in-flight fetches when none is configured.
const DefaultConcurrency = 10

// Dispatcher schedules every URL up front and bounds how many are processed at once.
type Dispatcher struct {
	processor   crawler.Processor
	concurrency int64
	logger      *zap.Logger
}

// New creates a Dispatcher.
func New(processor crawler.Processor, concurrency int, logger *zap.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		processor:   processor,
		concurrency: int64(concurrency),
		logger:      logger,
	}
}

// Run processes urls and returns their outcomes in completion order. The
// result always has exactly len(urls) entries.
func (d *Dispatcher) Run(ctx context.Context, urls []string) []job.Outcome {
	return d.RunWithTracker(ctx, urls, progress.NewTracker(len(urls), d.logger))
}

// RunWithTracker is Run with a caller-provided progress tracker.
func (d *Dispatcher) RunWithTracker(ctx context.Context, urls []string, tracker crawler.Tracker) []job.Outcome {
	start := time.Now()
	gate := semaphore.NewWeighted(d.concurrency)
	results := make(chan job.Outcome, len(urls))

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			results <- d.processor.Process(ctx, gate, tracker, url)
		}(u)
	}
	wg.Wait()
	close(results)

	outcomes := make([]job.Outcome, 0, len(urls))
	for o := range results {
		outcomes = append(outcomes, o)
	}

	accepted, rejected := job.Tally(outcomes)
	d.logger.Info("dispatch finished",
		zap.Int("urls", len(urls)),
		zap.Int("accepted", accepted),
		zap.Int("rejected", rejected),
		zap.Duration("elapsed", time.Since(start)),
	)
	return outcomes
}
