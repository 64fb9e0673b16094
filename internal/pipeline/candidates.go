// Package pipeline runs the per-campaign preprocessing flow: join votes with
// ballot metadata, resolve each ballot to a coordinate, validate it, apply
// fallbacks, aggregate by location and write the campaign outputs.
package pipeline

import (
	"strings"

	"github.com/zachmoshe/il-elections/internal/model"
	"github.com/zachmoshe/il-elections/pkg/geocode"
)

const countrySuffix = "ישראל"

// Free-text values the committee uses when a field carries no real
// information. Compared after CleanAddress normalization.
var placeholderValues = map[string]bool{
	"": true,
	"לאידוע": true,
	"לא ידוע": true,
}

func meaningful(s string) bool {
	return !placeholderValues[geocode.CleanAddress(s)]
}

// GeocodeCandidates returns the query strings to try for a ballot's location,
// most specific first. The bare locality name is always last so a hit on it
// alone still places the ballot inside the right town.
func GeocodeCandidates(m model.BallotMetadata) []string {
	var parts [][]string
	if meaningful(m.Address) {
		parts = append(parts, []string{m.Address, m.LocalityName, countrySuffix})
	}
	if meaningful(m.LocationName) {
		parts = append(parts, []string{m.LocationName, m.LocalityName, countrySuffix})
	}
	if meaningful(m.Address) && meaningful(m.LocationName) {
		parts = append(parts, []string{m.LocationName + " " + m.Address, m.LocalityName, countrySuffix})
	}
	if meaningful(m.LocalityName) {
		parts = append(parts, []string{m.LocalityName, countrySuffix})
	}

	seen := make(map[string]bool, len(parts))
	candidates := make([]string, 0, len(parts))
	for _, p := range parts {
		q := strings.Join(p, ", ")
		key := geocode.CleanAddress(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, q)
	}
	return candidates
}
