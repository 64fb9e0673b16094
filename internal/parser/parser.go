// Package parser reads raw per-campaign data files (ballot vote counts,
// ballot metadata) into model records. The format set is closed: parsers are
// selected by explicit dispatch on the configured format name.
package parser

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/zachmoshe/il-elections/internal/model"
)

// VotesParser parses a ballots-votes file.
type VotesParser interface {
	ParseVotes(path string) ([]model.BallotVotes, error)
}

// MetadataParser parses a ballots-metadata file.
type MetadataParser interface {
	ParseMetadata(path string) ([]model.BallotMetadata, error)
}

// Known format names.
const (
	FormatCSVUTF8    = "csv-utf8"
	FormatCSVWindows = "csv-windows" // Windows-1255 encoded CSV
	FormatXLSX       = "xlsx"
)

// NewVotesParser returns the votes parser for the given format.
func NewVotesParser(format string) (VotesParser, error) {
	switch format {
	case FormatCSVUTF8:
		return &votesFileParser{decode: false}, nil
	case FormatCSVWindows:
		return &votesFileParser{decode: true}, nil
	case FormatXLSX:
		return &votesFileParser{xlsx: true}, nil
	default:
		return nil, eris.Errorf("parser: unknown ballots-votes format %q", format)
	}
}

// NewMetadataParser returns the metadata parser for the given format.
func NewMetadataParser(format string) (MetadataParser, error) {
	switch format {
	case FormatXLSX:
		return &metadataXLSXParser{}, nil
	default:
		return nil, eris.Errorf("parser: unknown ballots-metadata format %q", format)
	}
}

// parseLocalityID reads a locality id that may carry an Excel float suffix
// ("9400.0").
func parseLocalityID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parser: invalid locality id %q", raw)
	}
	return int(f), nil
}

// parseCount reads a non-negative integer count field. Empty cells count as zero.
func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parser: invalid count %q", raw)
	}
	return int(f), nil
}
