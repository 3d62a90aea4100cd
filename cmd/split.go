package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobpost-scraper/internal/logging"
	"github.com/JakeFAU/jobpost-scraper/internal/source"
)

type splitFlags struct {
	source    string
	chunkSize int
	outputDir string
}

func newSplitCmd() *cobra.Command {
	var flags splitFlags
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Splits the job posting URL list into numbered JSON chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := logging.FromContext(cmd.Context())
			cfg := rt.Config.Split
			if flags.source != "" {
				cfg.Source = flags.source
			}
			if flags.chunkSize > 0 {
				cfg.ChunkSize = flags.chunkSize
			}
			if flags.outputDir != "" {
				cfg.OutputDir = flags.outputDir
			}

			urls, err := source.NewLoader(newFetcher(rt.Config.HTTP)).Load(cmd.Context(), cfg.Source)
			if err != nil {
				return err
			}
			files, err := source.WriteChunks(cfg.OutputDir, urls, cfg.ChunkSize)
			if err != nil {
				return err
			}
			for _, f := range files {
				logger.Info("Saved " + f)
			}
			logger.Info("split finished", zap.Int("urls", len(urls)), zap.Int("files", len(files)))
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.source, "source", "", "URL list location (overrides split.source)")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 0, "URLs per chunk (overrides split.chunk_size)")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "directory for chunk files (overrides split.output_dir)")
	return cmd
}
