// Package model defines the core data types shared across the preprocessing pipeline.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// PartyVotes maps a party code to its vote count in a single ballot.
type PartyVotes map[string]int

// Merge adds the counts from other into a copy of pv. Missing keys count as zero.
func (pv PartyVotes) Merge(other PartyVotes) PartyVotes {
	merged := make(PartyVotes, len(pv)+len(other))
	for k, v := range pv {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] += v
	}
	return merged
}

// Total returns the sum of votes across all parties.
func (pv PartyVotes) Total() int {
	var total int
	for _, v := range pv {
		total += v
	}
	return total
}

// BallotKey identifies a single ballot within a campaign.
// BallotID is decimal-valued ("3.1") because ballots may be split.
type BallotKey struct {
	LocalityID int
	BallotID   string
}

// String returns the canonical "localityID-ballotID" join key.
func (k BallotKey) String() string {
	return fmt.Sprintf("%d-%s", k.LocalityID, k.BallotID)
}

// TruncateSubBallot maps split ballot ids ("3.1", "3.2") onto their parent
// ballot id ("3.0"). Non-split ids are returned unchanged.
func (k BallotKey) TruncateSubBallot() BallotKey {
	i := strings.LastIndex(k.BallotID, ".")
	if i < 0 {
		return k
	}
	return BallotKey{LocalityID: k.LocalityID, BallotID: k.BallotID[:i] + ".0"}
}

// NormalizeBallotID converts raw ballot id values ("3", "3.0", " 3.1 ") to the
// canonical one-decimal form used for joining.
func NormalizeBallotID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", eris.Wrapf(err, "model: invalid ballot id %q", raw)
	}
	return strconv.FormatFloat(f, 'f', 1, 64), nil
}

// BallotVotes holds the vote counts reported for a single ballot.
type BallotVotes struct {
	LocalityID      int
	LocalityName    string
	BallotID        string
	NumRegistered   int
	NumVoted        int
	NumDisqualified int
	NumApproved     int
	PartiesVotes    PartyVotes
}

// Key returns the join key for this record.
func (b BallotVotes) Key() BallotKey {
	return BallotKey{LocalityID: b.LocalityID, BallotID: b.BallotID}
}

// Validate checks the counting invariant approved <= voted <= registered.
func (b BallotVotes) Validate() error {
	if b.NumRegistered < 0 || b.NumVoted < 0 || b.NumDisqualified < 0 || b.NumApproved < 0 {
		return eris.Errorf("model: ballot %s has negative counts", b.Key())
	}
	if b.NumApproved > b.NumVoted {
		return eris.Errorf("model: ballot %s: approved (%d) exceeds voted (%d)",
			b.Key(), b.NumApproved, b.NumVoted)
	}
	if b.NumVoted > b.NumRegistered {
		return eris.Errorf("model: ballot %s: voted (%d) exceeds registered (%d)",
			b.Key(), b.NumVoted, b.NumRegistered)
	}
	for party, n := range b.PartiesVotes {
		if n < 0 {
			return eris.Errorf("model: ballot %s: negative votes for party %q", b.Key(), party)
		}
	}
	return nil
}

// BallotMetadata holds the location details reported for a single ballot.
// All text fields are free-text and may be empty or placeholder values.
type BallotMetadata struct {
	LocalityID   int
	BallotID     string
	LocalityName string
	LocationName string
	Address      string
}

// Key returns the join key for this record.
func (m BallotMetadata) Key() BallotKey {
	return BallotKey{LocalityID: m.LocalityID, BallotID: m.BallotID}
}

// GeocodeSource tags how an enriched ballot got its coordinate.
type GeocodeSource string

const (
	// GeocodeExact means an address candidate geocoded and validated.
	GeocodeExact GeocodeSource = "exact"
	// GeocodeFallback means the locality-mean heuristic supplied the coordinate.
	GeocodeFallback GeocodeSource = "fallback"
	// GeocodeUnresolved means no coordinate could be determined.
	GeocodeUnresolved GeocodeSource = "unresolved"
)

// EnrichedBallot is the union of a ballot's votes and metadata plus the
// resolved coordinate. Lat/Lng are nil when geocoding failed entirely.
type EnrichedBallot struct {
	BallotVotes
	LocationName string
	Address      string
	Lat          *float64
	Lng          *float64
	Source       GeocodeSource
}

// Resolved reports whether the ballot carries a coordinate.
func (e EnrichedBallot) Resolved() bool {
	return e.Lat != nil && e.Lng != nil
}

// Campaign describes a single election event. Immutable once loaded.
type Campaign struct {
	Name string
	Date time.Time
}
