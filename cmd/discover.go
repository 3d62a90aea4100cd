package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/logging"
	"github.com/JakeFAU/jobpost-scraper/internal/discover"
)

func newDiscoverCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Collects job posting URLs from every company listing",
		Long: `Loads the company listing, walks every company's paginated job board and
writes the merged, de-duplicated URL list (previous list first) one URL per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := logging.FromContext(cmd.Context())
			cfg := rt.Config.Discover
			if output == "" {
				output = cfg.Output
			}

			d := discover.New(newFetcher(rt.Config.HTTP), discover.Config{
				BaseURL:  cfg.BaseURL,
				Workers:  cfg.Workers,
				DelayMin: cfg.DelayMin,
				DelayMax: cfg.DelayMax,
			}, logger.Named("discover"))

			res, err := d.Run(cmd.Context(), discover.Options{
				CompanySource: cfg.CompanySource,
				URLSource:     cfg.URLSource,
				Output:        output,
			})
			if err != nil {
				return err
			}
			logger.Info("discovery finished",
				zap.Int("companies", res.Companies),
				zap.Int("seeded", res.Seeded),
				zap.Int("discovered", res.Discovered),
				zap.Int("written", res.Written),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "URL list to write (overrides discover.output)")
	return cmd
}
