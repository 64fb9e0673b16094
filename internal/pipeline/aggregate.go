package pipeline

import (
	"strconv"

	"github.com/zachmoshe/il-elections/internal/model"
)

// AggregateByLocation groups enriched ballots that share a coordinate,
// rounded to precision decimal digits. Ballots without a coordinate are
// returned separately so no vote is ever dropped. Group order follows the
// first appearance of each location in the input.
func AggregateByLocation(ballots []model.EnrichedBallot, precision int) ([]model.LocationAggregate, []model.EnrichedBallot) {
	groups := make(map[string]*model.LocationAggregate)
	var keys []string
	var missing []model.EnrichedBallot

	for _, b := range ballots {
		if !b.Resolved() {
			missing = append(missing, b)
			continue
		}

		lat := roundTo(*b.Lat, precision)
		lng := roundTo(*b.Lng, precision)
		key := strconv.FormatFloat(lat, 'f', precision, 64) + "," +
			strconv.FormatFloat(lng, 'f', precision, 64)

		a, ok := groups[key]
		if !ok {
			a = &model.LocationAggregate{
				Lat:          lat,
				Lng:          lng,
				PartiesVotes: make(model.PartyVotes),
			}
			groups[key] = a
			keys = append(keys, key)
		}

		a.NumBallots++
		a.LocalityIDs = appendUniqueInt(a.LocalityIDs, b.LocalityID)
		a.LocalityNames = appendUnique(a.LocalityNames, b.LocalityName)
		a.BallotIDs = appendUnique(a.BallotIDs, b.BallotID)
		a.LocationNames = appendUnique(a.LocationNames, b.LocationName)
		a.Addresses = appendUnique(a.Addresses, b.Address)
		a.NumRegistered += b.NumRegistered
		a.NumVoted += b.NumVoted
		a.NumDisqualified += b.NumDisqualified
		a.NumApproved += b.NumApproved
		a.PartiesVotes = a.PartiesVotes.Merge(b.PartiesVotes)
	}

	aggs := make([]model.LocationAggregate, 0, len(keys))
	for _, key := range keys {
		aggs = append(aggs, *groups[key])
	}
	return aggs, missing
}

func roundTo(v float64, precision int) float64 {
	// FormatFloat/ParseFloat round-trips exactly at the requested precision.
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	return f
}

func appendUniqueInt(list []int, v int) []int {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
