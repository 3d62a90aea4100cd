package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/batch"
	"github.com/JakeFAU/jobpost-scraper/internal/config"
	"github.com/JakeFAU/jobpost-scraper/internal/crawler"
	"github.com/JakeFAU/jobpost-scraper/internal/dispatcher"
	"github.com/JakeFAU/jobpost-scraper/internal/extract"
	"github.com/JakeFAU/jobpost-scraper/internal/logging"
	"github.com/JakeFAU/jobpost-scraper/internal/ratelimit"
	"github.com/JakeFAU/jobpost-scraper/internal/source"
	"github.com/JakeFAU/jobpost-scraper/internal/worker"
)

type scrapeFlags struct {
	backup      string
	chunkSize   int
	concurrency int
}

func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape <input> <output>",
		Short: "Scrapes every job posting URL in input into output",
		Long: `Reads a URL list (JSON array or one URL per line, local path or http(s)
URL), fetches every posting with bounded concurrency and writes one result per
URL to output. Failed URLs are recorded with a reject reason.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, args[0], args[1], flags)
		},
	}
	cmd.Flags().StringVar(&flags.backup, "backup", "", "JSON file that accumulates results across runs")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 0, "process the list in batches of this size (overrides scrape.chunk_size)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "in-flight fetch limit (overrides scrape.concurrency)")
	return cmd
}

func runScrape(cmd *cobra.Command, input, output string, flags scrapeFlags) error {
	rt, err := runtimeFrom(cmd.Context())
	if err != nil {
		return err
	}
	cfg := rt.Config
	logger := logging.FromContext(cmd.Context())

	chunkSize := cfg.Scrape.ChunkSize
	if cmd.Flags().Changed("chunk-size") {
		chunkSize = flags.chunkSize
	}
	concurrency := cfg.Scrape.Concurrency
	if cmd.Flags().Changed("concurrency") && flags.concurrency > 0 {
		concurrency = flags.concurrency
	}

	fetcher := newFetcher(cfg.HTTP)
	w := worker.New(fetcher, extract.New(), hostLimiter(cfg.Scrape), worker.Config{
		Timeout:  cfg.HTTP.Timeout,
		DelayMin: cfg.Scrape.DelayMin,
		DelayMax: cfg.Scrape.DelayMax,
	}, logger.Named("worker"))
	dispatch := dispatcher.New(w, concurrency, logger.Named("dispatcher"))
	orchestrator := batch.New(source.NewLoader(fetcher), dispatch, logger)

	summary, err := orchestrator.Run(cmd.Context(), batch.Options{
		Input:     input,
		Output:    output,
		Backup:    flags.backup,
		ChunkSize: chunkSize,
	})
	if err != nil {
		return err
	}
	logger.Info("Job details extraction completed",
		zap.Int("urls", summary.URLs),
		zap.Int("accepted", summary.Accepted),
		zap.Int("rejected", summary.Rejected),
		zap.Strings("files", summary.Files),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return nil
}

// hostLimiter returns the per-host limiter, or nil when no rate is configured
// so the worker skips the lookup entirely.
func hostLimiter(cfg config.ScrapeConfig) crawler.Limiter {
	l := ratelimit.New(ratelimit.Config{RPS: cfg.HostRPS, Burst: cfg.HostBurst})
	if !l.Enabled() {
		return nil
	}
	return l
}
