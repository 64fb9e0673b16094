package pipeline

import (
	"sort"

	"github.com/zachmoshe/il-elections/internal/model"
)

// MissingGeoGroup counts unresolved ballots that share the same reported
// location text.
type MissingGeoGroup struct {
	LocalityName string
	LocationName string
	Address      string
	NumBallots   int
}

// Analysis summarizes a single campaign after enrichment.
type Analysis struct {
	NumVoters    int
	NumVoted     int
	VotingRatio  float64
	PartiesVotes model.PartyVotes
	MissingGeo   []MissingGeoGroup
}

// Analyze computes campaign-level aggregates over the enriched ballots.
func Analyze(ballots []model.EnrichedBallot) *Analysis {
	a := &Analysis{PartiesVotes: make(model.PartyVotes)}

	missing := make(map[MissingGeoGroup]int)
	for _, b := range ballots {
		a.NumVoters += b.NumRegistered
		a.NumVoted += b.NumVoted
		a.PartiesVotes = a.PartiesVotes.Merge(b.PartiesVotes)

		if !b.Resolved() {
			g := MissingGeoGroup{
				LocalityName: orNA(b.LocalityName),
				LocationName: orNA(b.LocationName),
				Address:      orNA(b.Address),
			}
			missing[g]++
		}
	}
	if a.NumVoters > 0 {
		a.VotingRatio = float64(a.NumVoted) / float64(a.NumVoters)
	}

	for g, n := range missing {
		g.NumBallots = n
		a.MissingGeo = append(a.MissingGeo, g)
	}
	sort.Slice(a.MissingGeo, func(i, j int) bool {
		if a.MissingGeo[i].NumBallots != a.MissingGeo[j].NumBallots {
			return a.MissingGeo[i].NumBallots > a.MissingGeo[j].NumBallots
		}
		return a.MissingGeo[i].LocalityName < a.MissingGeo[j].LocalityName
	})
	return a
}

// TopParties returns up to n (party, votes) pairs ordered by votes
// descending, ties broken by party code.
func (a *Analysis) TopParties(n int) []PartyCount {
	parties := make([]PartyCount, 0, len(a.PartiesVotes))
	for p, v := range a.PartiesVotes {
		parties = append(parties, PartyCount{Party: p, Votes: v})
	}
	sort.Slice(parties, func(i, j int) bool {
		if parties[i].Votes != parties[j].Votes {
			return parties[i].Votes > parties[j].Votes
		}
		return parties[i].Party < parties[j].Party
	})
	if len(parties) > n {
		parties = parties[:n]
	}
	return parties
}

// PartyCount is a single entry of a party leaderboard.
type PartyCount struct {
	Party string
	Votes int
}

func orNA(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}
