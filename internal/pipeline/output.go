package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gopkg.in/yaml.v3"

	"github.com/zachmoshe/il-elections/internal/model"
)

// campaignSummary is the content of the per-campaign metadata file.
type campaignSummary struct {
	Name         string  `yaml:"name"`
	Date         string  `yaml:"date"`
	NumBallots   int     `yaml:"num_ballots"`
	NumLocations int     `yaml:"num_locations"`
	NumVoters    int     `yaml:"num_voters"`
	NumVoted     int     `yaml:"num_voted"`
	VotingRatio  float64 `yaml:"voting_ratio"`
	Enrichment   *Stats  `yaml:"enrichment"`
}

// WriteCampaignOutput stores the three per-campaign artifacts under dir:
// a yaml summary, the full enriched ballots as csv and the aggregated
// locations as geojson.
func WriteCampaignOutput(dir string, campaign model.Campaign, ballots []model.EnrichedBallot, aggs []model.LocationAggregate, analysis *Analysis, stats *Stats) error {
	summary := campaignSummary{
		Name:         campaign.Name,
		Date:         campaign.Date.Format("2006-01-02"),
		NumBallots:   len(ballots),
		NumLocations: len(aggs),
		NumVoters:    analysis.NumVoters,
		NumVoted:     analysis.NumVoted,
		VotingRatio:  analysis.VotingRatio,
		Enrichment:   stats,
	}
	if err := writeYAML(filepath.Join(dir, campaign.Name+".metadata.yaml"), summary); err != nil {
		return err
	}
	if err := writeBallotsCSV(filepath.Join(dir, campaign.Name+".ballots.csv"), ballots); err != nil {
		return err
	}
	return writeLocationsGeoJSON(filepath.Join(dir, campaign.Name+".locations.geojson"), aggs)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "output: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "output: write %s", path)
	}
	return nil
}

func writeBallotsCSV(path string, ballots []model.EnrichedBallot) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "output: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	header := []string{
		"locality_id", "locality_name", "ballot_id", "location_name", "address",
		"lat", "lng", "geocode_source",
		"num_registered_voters", "num_voted", "num_disqualified", "num_approved",
		"parties_votes",
	}
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "output: write %s", path)
	}

	for _, b := range ballots {
		parties, err := json.Marshal(b.PartiesVotes)
		if err != nil {
			return eris.Wrapf(err, "output: marshal parties for ballot %s", b.Key())
		}
		record := []string{
			strconv.Itoa(b.LocalityID),
			b.LocalityName,
			b.BallotID,
			b.LocationName,
			b.Address,
			formatCoord(b.Lat),
			formatCoord(b.Lng),
			string(b.Source),
			strconv.Itoa(b.NumRegistered),
			strconv.Itoa(b.NumVoted),
			strconv.Itoa(b.NumDisqualified),
			strconv.Itoa(b.NumApproved),
			string(parties),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "output: write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "output: flush %s", path)
	}
	return nil
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func writeLocationsGeoJSON(path string, aggs []model.LocationAggregate) error {
	fc := &geojson.FeatureCollection{}
	for i, a := range aggs {
		point := geom.NewPointFlat(geom.XY, []float64{a.Lng, a.Lat})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       fmt.Sprintf("location-%d", i),
			Geometry: point,
			Properties: map[string]any{
				"locality_ids":          a.LocalityIDs,
				"locality_names":        a.LocalityNames,
				"num_ballots":           a.NumBallots,
				"ballot_ids":            a.BallotIDs,
				"location_names":        a.LocationNames,
				"addresses":             a.Addresses,
				"num_registered_voters": a.NumRegistered,
				"num_voted":             a.NumVoted,
				"num_disqualified":      a.NumDisqualified,
				"num_approved":          a.NumApproved,
				"parties_votes":         a.PartiesVotes,
			},
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrapf(err, "output: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "output: write %s", path)
	}
	return nil
}
