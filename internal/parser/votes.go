package parser

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/zachmoshe/il-elections/internal/model"
)

// Aliases for the named columns. The committee renamed headers across
// campaigns, so several spellings map to the same field.
var votesColumnAliases = map[string]string{
	"מספר קלפי": "ballot_id",
	"סמל קלפי":  "ballot_id",
	"קלפי":      "ballot_id",
	"סמל ישוב":  "locality_id",
	"שם ישוב":   "locality_name",
	"בזב":       "num_registered_voters",
	"בז\"ב":     "num_registered_voters",
	"בז''ב":     "num_registered_voters",
	"מצביעים":   "num_voted",
	"פסולים":    "num_disqualified",
	"כשרים":     "num_approved",
}

// Administrative columns that are neither named fields nor parties.
var votesIgnoredColumns = map[string]bool{
	"סמל ועדה": true,
	"ברזל":     true,
	"ריכוז":    true,
	"שופט":     true,
	"ת. עדכון": true,
}

// votesFileParser parses ballots-votes files from CSV (UTF-8 or
// Windows-1255) or XLSX sources. Named columns become counts; every other
// column is taken as a party code.
type votesFileParser struct {
	decode bool // decode Windows-1255 before parsing
	xlsx   bool
}

func (p *votesFileParser) ParseVotes(path string) ([]model.BallotVotes, error) {
	var rows [][]string
	var err error
	if p.xlsx {
		rows, err = readXLSXRows(path)
	} else {
		rows, err = p.readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("parser: votes file %s is empty", path)
	}
	return rowsToVotes(rows[0], rows[1:])
}

func (p *votesFileParser) readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "parser: open votes file %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if p.decode {
		r = transform.NewReader(f, charmap.Windows1255.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "parser: read votes csv %s", path)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "parser: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("parser: xlsx %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// rowsToVotes maps a header row plus data rows into vote records.
func rowsToVotes(header []string, rows [][]string) ([]model.BallotVotes, error) {
	fieldCols := make(map[string]int) // field name -> column index
	partyCols := make(map[int]string) // column index -> transcribed party code

	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" || strings.HasPrefix(name, "Unnamed:") || votesIgnoredColumns[name] {
			continue
		}
		if field, ok := votesColumnAliases[name]; ok {
			if _, dup := fieldCols[field]; !dup {
				fieldCols[field] = i
			}
			continue
		}
		partyCols[i] = transcribeHebrew(name)
	}

	for _, required := range []string{"ballot_id", "locality_id", "locality_name"} {
		if _, ok := fieldCols[required]; !ok {
			return nil, eris.Errorf("parser: votes file is missing the %s column", required)
		}
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	votes := make([]model.BallotVotes, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}

		localityID, err := parseLocalityID(cell(row, fieldCols["locality_id"]))
		if err != nil {
			return nil, err
		}
		ballotID, err := model.NormalizeBallotID(cell(row, fieldCols["ballot_id"]))
		if err != nil {
			return nil, err
		}

		v := model.BallotVotes{
			LocalityID:   localityID,
			LocalityName: cell(row, fieldCols["locality_name"]),
			BallotID:     ballotID,
			PartiesVotes: make(model.PartyVotes, len(partyCols)),
		}

		counts := map[string]*int{
			"num_registered_voters": &v.NumRegistered,
			"num_voted":             &v.NumVoted,
			"num_disqualified":      &v.NumDisqualified,
			"num_approved":          &v.NumApproved,
		}
		for field, dst := range counts {
			col, ok := fieldCols[field]
			if !ok {
				continue
			}
			n, err := parseCount(cell(row, col))
			if err != nil {
				return nil, eris.Wrapf(err, "parser: ballot %s field %s", v.Key(), field)
			}
			*dst = n
		}

		for col, party := range partyCols {
			n, err := parseCount(cell(row, col))
			if err != nil {
				return nil, eris.Wrapf(err, "parser: ballot %s party %s", v.Key(), party)
			}
			v.PartiesVotes[party] = n
		}

		votes = append(votes, v)
	}
	return votes, nil
}

// Hebrew party letters transcribed to unique latin codes, so party keys
// survive systems that mangle non-latin text.
var hebrewToLatin = map[rune]string{
	'א': "a", 'ב': "b", 'ג': "g", 'ד': "d", 'ה': "h", 'ו': "v", 'ז': "z",
	'ח': "H", 'ט': "t", 'י': "i", 'כ': "k", 'ך': "k.", 'ל': "l", 'מ': "m",
	'ם': "m.", 'נ': "n", 'ן': "n.", 'ס': "s", 'ע': "A", 'פ': "p", 'ף': "p.",
	'צ': "Z", 'ץ': "Z.", 'ק': "K", 'ר': "r", 'ש': "S", 'ת': "T",
}

func transcribeHebrew(s string) string {
	var b strings.Builder
	for _, r := range s {
		if t, ok := hebrewToLatin[r]; ok {
			b.WriteString(t)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
