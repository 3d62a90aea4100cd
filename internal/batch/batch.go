// Package batch drives a scrape run end to end: load the URL list, dispatch
// it, and persist the outcomes with an optional cumulative backup.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/job"
	"github.com/JakeFAU/jobpost-scraper/internal/source"
)

// Loader returns the URLs stored at a location. *source.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, location string) ([]string, error)
}

// Runner processes URLs into outcomes. *dispatcher.Dispatcher satisfies it.
type Runner interface {
	Run(ctx context.Context, urls []string) []job.Outcome
}

// Options configures one run.
type Options struct {
	// Input is a local path or http(s) URL holding the URL list.
	Input string
	// Output receives the outcome array and is overwritten.
	Output string
	// Backup, when set, accumulates outcomes across runs.
	Backup string
	// ChunkSize > 0 splits lists larger than it into sequential batches,
	// each written to <output-stem>_<n><ext>.
	ChunkSize int
}

// Summary reports what a run did.
type Summary struct {
	URLs          int
	Accepted      int
	Rejected      int
	Files         []string
	BackupRecords int
	Elapsed       time.Duration
}

// Orchestrator wires the loader, the runner and the output files.
type Orchestrator struct {
	loader Loader
	runner Runner
	logger *zap.Logger
}

// New constructs an Orchestrator.
func New(loader Loader, runner Runner, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{loader: loader, runner: runner, logger: logger}
}

// Run executes a scrape. Per-URL failures are data in the output; only
// loading and persistence errors are returned.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Input == "" || opts.Output == "" {
		return sum, errors.New("batch: input and output are required")
	}
	start := time.Now()

	urls, err := o.loader.Load(ctx, opts.Input)
	if err != nil {
		return sum, fmt.Errorf("load urls: %w", err)
	}
	sum.URLs = len(urls)
	o.logger.Info("loaded urls", zap.String("input", opts.Input), zap.Int("count", len(urls)))

	batches := [][]string{urls}
	chunked := opts.ChunkSize > 0 && len(urls) > opts.ChunkSize
	if chunked {
		batches = source.Chunk(urls, opts.ChunkSize)
	}

	for i, batch := range batches {
		output := opts.Output
		if chunked {
			output = ChunkOutputName(opts.Output, i+1)
		}
		outcomes := o.runner.Run(ctx, batch)
		accepted, rejected := job.Tally(outcomes)
		sum.Accepted += accepted
		sum.Rejected += rejected

		if err := job.WriteFile(output, outcomes); err != nil {
			return sum, fmt.Errorf("write results: %w", err)
		}
		sum.Files = append(sum.Files, output)
		o.logger.Info("results written",
			zap.String("output", output),
			zap.Int("accepted", accepted),
			zap.Int("rejected", rejected),
		)

		if opts.Backup != "" {
			total, err := job.AppendFile(opts.Backup, outcomes)
			if err != nil {
				return sum, fmt.Errorf("update backup: %w", err)
			}
			sum.BackupRecords = total
			o.logger.Info("backup updated", zap.String("backup", opts.Backup), zap.Int("records", total))
		}
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// ChunkOutputName inserts _<n> before the extension of path.
func ChunkOutputName(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
}
