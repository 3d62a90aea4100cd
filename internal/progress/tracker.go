package progress

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Tracker counts successfully processed URLs out of a known total. It
// satisfies crawler.Tracker.
type Tracker struct {
	mu     sync.Mutex
	done   int
	total  int
	logger *zap.Logger
}

// NewTracker returns a Tracker for a run of total URLs.
func NewTracker(total int, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{total: total, logger: logger}
}

// Increment records one more processed URL and returns the new count. The
// progress line is written while the lock is held so lines never interleave
// out of order.
func (t *Tracker) Increment() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	t.logger.Info(fmt.Sprintf("Processed %d/%d URLs", t.done, t.total),
		zap.Int("done", t.done),
		zap.Int("total", t.total),
	)
	return t.done
}

// Done returns the number of URLs processed so far.
func (t *Tracker) Done() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
