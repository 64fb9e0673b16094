package parser

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/zachmoshe/il-elections/internal/model"
)

var metadataColumns = map[string]string{
	"סמל קלפי":       "ballot_id",
	"סמל ישוב בחירות": "locality_id",
	"שם ישוב בחירות":  "locality_name",
	"מקום קלפי":      "location_name",
	"כתובת קלפי":     "address",
}

// metadataXLSXParser parses the ballots-metadata spreadsheet published by the
// election committee.
type metadataXLSXParser struct{}

func (p *metadataXLSXParser) ParseMetadata(path string) ([]model.BallotMetadata, error) {
	rows, err := readXLSXRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("parser: metadata file %s is empty", path)
	}

	cols := make(map[string]int)
	for i, raw := range rows[0] {
		if field, ok := metadataColumns[strings.TrimSpace(raw)]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	for _, required := range []string{"ballot_id", "locality_id", "locality_name", "location_name", "address"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("parser: metadata file is missing the %s column", required)
		}
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	records := make([]model.BallotMetadata, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		localityID, err := parseLocalityID(cell(row, cols["locality_id"]))
		if err != nil {
			return nil, err
		}
		ballotID, err := model.NormalizeBallotID(cell(row, cols["ballot_id"]))
		if err != nil {
			return nil, err
		}

		records = append(records, model.BallotMetadata{
			LocalityID:   localityID,
			BallotID:     ballotID,
			LocalityName: cell(row, cols["locality_name"]),
			LocationName: cell(row, cols["location_name"]),
			Address:      cell(row, cols["address"]),
		})
	}
	return records, nil
}
