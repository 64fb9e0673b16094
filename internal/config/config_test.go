package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Geocoder.RateLimit)
	assert.Equal(t, 10.0, cfg.Geocoder.MaxDistanceKM)
	assert.False(t, cfg.Geocoder.CacheOnly)
	assert.Equal(t, "outputs/geocode-cache.sqlite", cfg.Cache.Path)
	assert.Equal(t, "SEMEL_YISH", cfg.Boundaries.LocalityIDField)
	assert.Equal(t, 6, cfg.Aggregate.Precision)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ILELECTIONS_GEOCODER_CACHE_ONLY", "true")
	t.Setenv("ILELECTIONS_AGGREGATE_PRECISION", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Geocoder.CacheOnly)
	assert.Equal(t, 4, cfg.Aggregate.Precision)
}

func writeCampaignsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preprocessing_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const campaignsYAML = `
preprocessing_config:
  campaigns:
  - campaign_name: knesset-21
    campaign_date: 2019-04-09
    data:
      ballots_votes:
        filename: data/votes-21.csv
        format: csv-windows
      ballots_metadata:
        filename: data/metadata-21.xlsx
        format: xlsx
  - campaign_name: knesset-22
    campaign_date: 2019-09-17
    data:
      ballots_votes:
        filename: data/votes-22.csv
        format: csv-utf8
      ballots_metadata:
        filename: data/metadata-22.xlsx
        format: xlsx
`

func TestLoadCampaigns(t *testing.T) {
	campaigns, err := LoadCampaigns(writeCampaignsFile(t, campaignsYAML))
	require.NoError(t, err)
	require.Len(t, campaigns, 2)

	c := campaigns[0]
	assert.Equal(t, "knesset-21", c.Name)
	assert.Equal(t, "data/votes-21.csv", c.Data.BallotsVotes.Filename)
	assert.Equal(t, "csv-windows", c.Data.BallotsVotes.Format)
	assert.Equal(t, "data/metadata-21.xlsx", c.Data.BallotsMetadata.Filename)

	campaign, err := c.Campaign()
	require.NoError(t, err)
	assert.Equal(t, "knesset-21", campaign.Name)
	assert.Equal(t, 2019, campaign.Date.Year())
}

func TestLoadCampaignsRejectsBadFiles(t *testing.T) {
	_, err := LoadCampaigns(writeCampaignsFile(t, "preprocessing_config:\n  campaigns: []\n"))
	assert.ErrorContains(t, err, "no campaigns")

	dup := `
preprocessing_config:
  campaigns:
  - campaign_name: knesset-21
    campaign_date: 2019-04-09
  - campaign_name: knesset-21
    campaign_date: 2019-09-17
`
	_, err = LoadCampaigns(writeCampaignsFile(t, dup))
	assert.ErrorContains(t, err, "duplicate campaign")

	badDate := `
preprocessing_config:
  campaigns:
  - campaign_name: knesset-21
    campaign_date: april-9th
`
	_, err = LoadCampaigns(writeCampaignsFile(t, badDate))
	assert.Error(t, err)
}
