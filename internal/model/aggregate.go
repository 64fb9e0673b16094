package model

// LocationAggregate summarizes all ballots that resolved to the same
// (rounded) coordinate.
type LocationAggregate struct {
	Lat float64
	Lng float64

	NumBallots int

	// Ordered, de-duplicated collections from the contributing ballots.
	// Distinct localities can share a rounded coordinate, so locality
	// fields are lists too.
	LocalityIDs   []int
	LocalityNames []string
	BallotIDs     []string
	LocationNames []string
	Addresses     []string

	NumRegistered   int
	NumVoted        int
	NumDisqualified int
	NumApproved     int
	PartiesVotes    PartyVotes
}
