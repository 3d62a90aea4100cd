// Package worker implements the per-URL fetch pipeline: acquire a slot, fetch
// the page, classify the response, extract the record, then pause.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/crawler"
	"github.com/JakeFAU/jobpost-scraper/internal/job"
	"github.com/JakeFAU/jobpost-scraper/internal/metrics"
	"github.com/JakeFAU/jobpost-scraper/internal/progress"
)

// Config controls Worker behavior.
type Config struct {
	// Timeout bounds a single fetch. Zero leaves it to the fetcher.
	Timeout time.Duration
	// DelayMin and DelayMax bound the pause taken after every URL.
	DelayMin time.Duration
	DelayMax time.Duration
	// Headers are sent with every request.
	Headers http.Header
}

// Worker turns one URL into one outcome. It satisfies crawler.Processor and is
// safe for concurrent use.
type Worker struct {
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	limiter   crawler.Limiter
	cfg       Config
	logger    *zap.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// New constructs a Worker. limiter may be nil.
func New(
	fetcher crawler.Fetcher,
	extractor crawler.Extractor,
	limiter crawler.Limiter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	return &Worker{
		fetcher:   fetcher,
		extractor: extractor,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
		sleep:     crawler.Sleep,
	}
}

// Process produces exactly one outcome for url and never panics. The gate slot
// is held for the fetch, the extraction and the trailing pause.
func (w *Worker) Process(ctx context.Context, gate crawler.Gate, tracker crawler.Tracker, url string) (out job.Outcome) {
	if err := gate.Acquire(ctx, 1); err != nil {
		metrics.ObserveOutcome(metrics.OutcomeFailed)
		w.logger.Debug("gate acquire failed", zap.String("url", url), zap.Error(err))
		return job.Rejected(failedReason(url, err))
	}
	metrics.IncInFlight()
	defer func() {
		metrics.DecInFlight()
		gate.Release(1)
	}()
	// Runs after recovery so a panicking URL still pauses.
	defer w.pause(ctx)

	var kind string
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panic recovered", zap.String("url", url), zap.Any("panic", r))
			out = job.Rejected(fmt.Sprintf("Failed to process %s: %v", url, r))
			kind = metrics.OutcomeFailed
		}
		metrics.ObserveOutcome(kind)
		if reason, rejected := out.RejectReason(); rejected {
			w.logger.Debug("url rejected", zap.String("url", url), zap.String("reason", reason))
		}
	}()

	out, kind = w.process(ctx, tracker, url)
	return out
}

func (w *Worker) process(ctx context.Context, tracker crawler.Tracker, url string) (job.Outcome, string) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, url); err != nil {
			return job.Rejected(failedReason(url, err)), metrics.OutcomeFailed
		}
	}

	resp, err := w.fetch(ctx, url)
	if err != nil {
		if isTimeout(err) {
			return job.Rejected(fmt.Sprintf("Timeout on %s", url)), metrics.OutcomeTimeout
		}
		return job.Rejected(failedReason(url, err)), metrics.OutcomeFailed
	}
	metrics.ObserveFetch(url, string(progress.ClassifyStatus(resp.StatusCode)), len(resp.Body), resp.Duration)

	if !resp.OK() {
		return job.Rejected(fmt.Sprintf("HTTP %d on %s", resp.StatusCode, url)), metrics.OutcomeHTTP
	}

	rec, err := w.extractor.Extract(url, resp.Body)
	if err != nil {
		return job.Rejected(failedReason(url, err)), metrics.OutcomeFailed
	}
	// Redirects may change the final URL; the record keeps the input.
	rec.JobURL = url
	tracker.Increment()
	return job.Accepted(rec), metrics.OutcomeAccepted
}

func (w *Worker) fetch(ctx context.Context, url string) (crawler.FetchResponse, error) {
	fetchCtx := ctx
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	resp, err := w.fetcher.Fetch(fetchCtx, crawler.FetchRequest{
		URL:     url,
		Headers: w.cfg.Headers.Clone(),
	})
	if err != nil {
		return crawler.FetchResponse{}, fmt.Errorf("fetch page: %w", err)
	}
	return resp, nil
}

// pause sleeps for a random delay even when ctx is already cancelled.
func (w *Worker) pause(ctx context.Context) {
	w.sleep(context.WithoutCancel(ctx), crawler.RandomDelay(w.cfg.DelayMin, w.cfg.DelayMax))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func failedReason(url string, err error) string {
	return fmt.Sprintf("Failed to process %s: %v", url, err)
}
