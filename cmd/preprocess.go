package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zachmoshe/il-elections/internal/config"
	"github.com/zachmoshe/il-elections/internal/pipeline"
)

var (
	preprocessConfigFile     string
	preprocessOutputFolder   string
	preprocessOverride       bool
	preprocessSingleCampaign string
	preprocessParallel       int
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Preprocess all configured campaigns",
	Long:  "Loads each campaign's votes and metadata files, enriches ballots with geolocation and writes the per-campaign artifacts to the output folder.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		campaigns, err := config.LoadCampaigns(preprocessConfigFile)
		if err != nil {
			return err
		}
		if preprocessSingleCampaign != "" {
			var selected []config.CampaignConfig
			for _, c := range campaigns {
				if c.Name == preprocessSingleCampaign {
					selected = append(selected, c)
				}
			}
			if len(selected) == 0 {
				return eris.Errorf("campaign %q not found in %s", preprocessSingleCampaign, preprocessConfigFile)
			}
			campaigns = selected
		}

		outDir := preprocessOutputFolder
		if outDir == "" {
			outDir = cfg.Output.Folder
		}
		override := preprocessOverride || cfg.Output.Override
		if err := pipeline.PrepareOutputDir(outDir, override); err != nil {
			return err
		}

		runner, err := pipeline.NewRunner(ctx, cfg)
		if err != nil {
			return err
		}
		defer runner.Close() //nolint:errcheck

		zap.L().Info("starting preprocessing",
			zap.Int("num_campaigns", len(campaigns)),
			zap.String("output", outDir))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(preprocessParallel)
		for _, cc := range campaigns {
			g.Go(func() error {
				return runner.RunCampaign(gctx, cc, outDir, os.Stdout)
			})
		}
		return g.Wait()
	},
}

func init() {
	preprocessCmd.Flags().StringVar(&preprocessConfigFile, "config", "config/preprocessing_config.yaml", "campaigns config file")
	preprocessCmd.Flags().StringVar(&preprocessOutputFolder, "output", "", "output folder (default from config)")
	preprocessCmd.Flags().BoolVar(&preprocessOverride, "override", false, "replace the output folder if it exists")
	preprocessCmd.Flags().StringVar(&preprocessSingleCampaign, "single-campaign", "", "only run this campaign")
	preprocessCmd.Flags().IntVar(&preprocessParallel, "parallel", 1, "campaigns processed concurrently")
	rootCmd.AddCommand(preprocessCmd)
}
