package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachmoshe/il-elections/internal/model"
)

func enrichedBallot(localityID int, ballotID string, lat, lng float64, votes model.PartyVotes) model.EnrichedBallot {
	return model.EnrichedBallot{
		BallotVotes: model.BallotVotes{
			LocalityID:   localityID,
			LocalityName: "חיפה",
			BallotID:     ballotID,
			NumRegistered: votes.Total() + 10,
			NumVoted:      votes.Total(),
			NumApproved:   votes.Total(),
			PartiesVotes:  votes,
		},
		Lat:    &lat,
		Lng:    &lng,
		Source: model.GeocodeExact,
	}
}

func TestAggregateByLocationGroupsByRoundedCoord(t *testing.T) {
	ballots := []model.EnrichedBallot{
		enrichedBallot(9400, "1.0", 32.8100004, 35.0, model.PartyVotes{"mHl": 100}),
		enrichedBallot(9400, "2.0", 32.8099996, 35.0, model.PartyVotes{"mHl": 50, "ph": 30}),
		enrichedBallot(9400, "3.0", 32.9, 35.0, model.PartyVotes{"ph": 70}),
	}

	aggs, missing := AggregateByLocation(ballots, 6)
	require.Empty(t, missing)
	require.Len(t, aggs, 2)

	// First group keeps first-appearance order and merges the two ballots
	// that round to the same coordinate.
	a := aggs[0]
	assert.InDelta(t, 32.81, a.Lat, 1e-6)
	assert.Equal(t, 2, a.NumBallots)
	assert.Equal(t, []string{"1.0", "2.0"}, a.BallotIDs)
	assert.Equal(t, 150, a.PartiesVotes["mHl"])
	assert.Equal(t, 30, a.PartiesVotes["ph"])

	assert.Equal(t, 1, aggs[1].NumBallots)
	assert.Equal(t, []string{"3.0"}, aggs[1].BallotIDs)
}

func TestAggregateByLocationKeepsAllLocalities(t *testing.T) {
	// Two ballots from different localities can round to the same
	// coordinate; both localities must survive in the group.
	b1 := enrichedBallot(9400, "1.0", 32.81, 35.0, model.PartyVotes{"mHl": 10})
	b2 := enrichedBallot(8600, "2.0", 32.81, 35.0, model.PartyVotes{"ph": 20})
	b2.LocalityName = "רמת גן"

	aggs, _ := AggregateByLocation([]model.EnrichedBallot{b1, b2}, 6)
	require.Len(t, aggs, 1)
	assert.Equal(t, []int{9400, 8600}, aggs[0].LocalityIDs)
	assert.Equal(t, []string{"חיפה", "רמת גן"}, aggs[0].LocalityNames)
}

func TestAggregateByLocationKeepsUnresolved(t *testing.T) {
	unresolved := model.EnrichedBallot{
		BallotVotes: model.BallotVotes{LocalityID: 9999, BallotID: "1.0", NumVoted: 80},
		Source:      model.GeocodeUnresolved,
	}
	ballots := []model.EnrichedBallot{
		enrichedBallot(9400, "1.0", 32.81, 35.0, model.PartyVotes{"mHl": 100}),
		unresolved,
	}

	aggs, missing := AggregateByLocation(ballots, 6)
	assert.Len(t, aggs, 1)
	require.Len(t, missing, 1)
	assert.Equal(t, 80, missing[0].NumVoted)
}

func TestAggregateByLocationConservesTotals(t *testing.T) {
	ballots := []model.EnrichedBallot{
		enrichedBallot(9400, "1.0", 32.81, 35.0, model.PartyVotes{"mHl": 100, "ph": 20}),
		enrichedBallot(9400, "2.0", 32.81, 35.0, model.PartyVotes{"mHl": 40}),
		enrichedBallot(9400, "3.0", 32.99, 35.1, model.PartyVotes{"amT": 60}),
	}

	var wantVoted, wantVotes int
	for _, b := range ballots {
		wantVoted += b.NumVoted
		wantVotes += b.PartiesVotes.Total()
	}

	aggs, missing := AggregateByLocation(ballots, 6)
	require.Empty(t, missing)

	var gotVoted, gotVotes, gotBallots int
	for _, a := range aggs {
		gotVoted += a.NumVoted
		gotVotes += a.PartiesVotes.Total()
		gotBallots += a.NumBallots
	}
	assert.Equal(t, wantVoted, gotVoted)
	assert.Equal(t, wantVotes, gotVotes)
	assert.Equal(t, len(ballots), gotBallots)
}

func TestAggregateByLocationDeduplicatesNames(t *testing.T) {
	b1 := enrichedBallot(9400, "1.0", 32.81, 35.0, nil)
	b1.LocationName = "בית ספר יבנה"
	b1.Address = "יבנה 27"
	b2 := enrichedBallot(9400, "2.0", 32.81, 35.0, nil)
	b2.LocationName = "בית ספר יבנה"
	b2.Address = "יבנה 27"

	aggs, _ := AggregateByLocation([]model.EnrichedBallot{b1, b2}, 6)
	require.Len(t, aggs, 1)
	assert.Equal(t, []string{"בית ספר יבנה"}, aggs[0].LocationNames)
	assert.Equal(t, []string{"יבנה 27"}, aggs[0].Addresses)
}
