package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/zachmoshe/il-elections/internal/config"
	"github.com/zachmoshe/il-elections/internal/parser"
	"github.com/zachmoshe/il-elections/internal/pipeline"
)

var (
	enrichConfigFile string
	enrichCampaign   string
	enrichLocalities string
)

// enrichCmd geocodes the metadata of a few localities and prints every
// candidate with its result. Useful for debugging why a ballot lands where
// it does before running a full campaign.
var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Debug geocoding for selected localities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		localities, err := parseLocalityList(enrichLocalities)
		if err != nil {
			return err
		}

		campaigns, err := config.LoadCampaigns(enrichConfigFile)
		if err != nil {
			return err
		}
		var campaign *config.CampaignConfig
		for _, c := range campaigns {
			if c.Name == enrichCampaign {
				campaign = &c
				break
			}
		}
		if campaign == nil {
			return eris.Errorf("campaign %q not found in %s", enrichCampaign, enrichConfigFile)
		}

		metadataParser, err := parser.NewMetadataParser(campaign.Data.BallotsMetadata.Format)
		if err != nil {
			return err
		}
		metadata, err := metadataParser.ParseMetadata(campaign.Data.BallotsMetadata.Filename)
		if err != nil {
			return err
		}

		runner, err := pipeline.NewRunner(ctx, cfg)
		if err != nil {
			return err
		}
		defer runner.Close() //nolint:errcheck
		geocoder := runner.Geocoder()

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"ballot", "candidate", "lat", "lng"})

		for _, m := range metadata {
			if !localities[m.LocalityID] {
				continue
			}
			for _, candidate := range pipeline.GeocodeCandidates(m) {
				p, err := geocoder.Geocode(ctx, candidate)
				switch {
				case err != nil:
					tw.AppendRow(table.Row{m.Key(), candidate, "error: " + err.Error(), ""})
				case p == nil:
					tw.AppendRow(table.Row{m.Key(), candidate, "no match", ""})
				default:
					tw.AppendRow(table.Row{m.Key(), candidate, p.Lat, p.Lng})
				}
			}
		}
		tw.Render()
		return nil
	},
}

func parseLocalityList(raw string) (map[int]bool, error) {
	localities := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid locality id %q", part)
		}
		localities[id] = true
	}
	if len(localities) == 0 {
		return nil, eris.New("at least one locality id is required")
	}
	return localities, nil
}

func init() {
	enrichCmd.Flags().StringVar(&enrichConfigFile, "config", "config/preprocessing_config.yaml", "campaigns config file")
	enrichCmd.Flags().StringVar(&enrichCampaign, "campaign", "", "campaign to read metadata from")
	enrichCmd.Flags().StringVar(&enrichLocalities, "localities", "", "comma-separated locality ids")
	_ = enrichCmd.MarkFlagRequired("campaign")
	_ = enrichCmd.MarkFlagRequired("localities")
	rootCmd.AddCommand(enrichCmd)
}
