package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/logging"
	"github.com/JakeFAU/jobpost-scraper/internal/merge"
)

func newCombineCmd() *cobra.Command {
	var opts merge.Options
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merges per-chunk job summaries into one file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := logging.FromContext(cmd.Context())
			cfg := rt.Config.Combine
			if opts.Root == "" {
				opts.Root = cfg.Root
			}
			if opts.Prefix == "" {
				opts.Prefix = cfg.Prefix
			}
			if opts.Output == "" {
				opts.Output = cfg.Output
			}

			res, err := merge.Combine(opts, logger.Named("merge"))
			if err != nil {
				return err
			}
			logger.Info("combine finished",
				zap.Int("files", len(res.Files)),
				zap.Int("skipped", len(res.Skipped)),
				zap.Int("elements", res.Elements),
				zap.Bool("written", res.Written),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Root, "root", "", "directory holding the summary folders (overrides combine.root)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "summary folder name prefix (overrides combine.prefix)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "combined file (overrides combine.output)")
	return cmd
}
