// Package cmd defines the CLI commands of the jobscraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/config"
	"github.com/JakeFAU/jobpost-scraper/internal/id/uuid"
	"github.com/JakeFAU/jobpost-scraper/internal/logging"
	"github.com/JakeFAU/jobpost-scraper/internal/metrics"
)

type runtimeKey struct{}

// Runtime holds the services resolved once per invocation.
type Runtime struct {
	Config  config.Config
	RunID   string
	Started time.Time
}

// newLogger is replaced in tests to capture output.
var newLogger = logging.New

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "jobscraper",
		Short: "Discovers, scrapes and publishes job postings.",
		Long: `jobscraper collects job posting URLs from company listings, scrapes
every posting into a structured record, merges per-chunk summaries and
uploads the combined artifact.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt := &Runtime{
				Config:  cfg,
				RunID:   uuid.NewRunID(),
				Started: time.Now(),
			}
			logger = logging.WithRunID(logger, rt.RunID).With(zap.String("command", cmd.Name()))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, runtimeKey{}, rt)
			cmd.SetContext(logging.IntoContext(ctx, logger))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return
			}
			logger := logging.FromContext(cmd.Context())
			metrics.ObserveCommand(cmd.Name(), time.Since(rt.Started))
			if err := metrics.Push(cmd.Context(), rt.Config.Metrics.PushgatewayURL, rt.Config.Metrics.Job); err != nil {
				logger.Warn("metrics push failed", zap.Error(err))
			}
			_ = logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env JOBSCRAPER_* overrides it)")

	cmd.AddCommand(
		newDiscoverCmd(),
		newSplitCmd(),
		newScrapeCmd(),
		newCombineCmd(),
		newUploadCmd(),
	)
	return cmd
}

// Execute runs the root command with ctx. A failing command is logged at
// Error through the run's logger, or written to stderr when it failed before
// the logger existed.
func Execute(ctx context.Context) error {
	return execute(ctx, NewRootCmd(), os.Stderr)
}

func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) error {
	c, err := root.ExecuteContextC(ctx)
	if err == nil {
		return nil
	}
	if c != nil && c.Context() != nil {
		if _, rerr := runtimeFrom(c.Context()); rerr == nil {
			logger := logging.FromContext(c.Context())
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
			return err
		}
	}
	fmt.Fprintf(stderr, "jobscraper: %v\n", err)
	return err
}

func runtimeFrom(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*Runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}
