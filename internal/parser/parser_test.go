package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
)

const votesCSV = "סמל ועדה,סמל ישוב,שם ישוב,מספר קלפי,בזב,מצביעים,פסולים,כשרים,מחל,פה\n" +
	"1,9400,חיפה,3.1,500,400,10,390,200,190\n" +
	"1,9400,חיפה,4,300,250,0,250,100,150\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestParseVotesCSVUTF8(t *testing.T) {
	p, err := NewVotesParser(FormatCSVUTF8)
	require.NoError(t, err)

	votes, err := p.ParseVotes(writeFile(t, "votes.csv", []byte(votesCSV)))
	require.NoError(t, err)
	require.Len(t, votes, 2)

	v := votes[0]
	assert.Equal(t, 9400, v.LocalityID)
	assert.Equal(t, "חיפה", v.LocalityName)
	assert.Equal(t, "3.1", v.BallotID)
	assert.Equal(t, 500, v.NumRegistered)
	assert.Equal(t, 400, v.NumVoted)
	assert.Equal(t, 10, v.NumDisqualified)
	assert.Equal(t, 390, v.NumApproved)
	// Party columns survive with transcribed keys.
	assert.Equal(t, 200, v.PartiesVotes["mHl"])
	assert.Equal(t, 190, v.PartiesVotes["ph"])

	// Whole ballot ids gain a ".0" suffix.
	assert.Equal(t, "4.0", votes[1].BallotID)
}

func TestParseVotesCSVWindows1255(t *testing.T) {
	encoded, err := charmap.Windows1255.NewEncoder().String(votesCSV)
	require.NoError(t, err)

	p, err := NewVotesParser(FormatCSVWindows)
	require.NoError(t, err)

	votes, err := p.ParseVotes(writeFile(t, "votes.csv", []byte(encoded)))
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, "חיפה", votes[0].LocalityName)
	assert.Equal(t, 200, votes[0].PartiesVotes["mHl"])
}

func TestParseVotesXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("votes")
	require.NoError(t, err)
	for _, cells := range [][]string{
		{"סמל ישוב", "שם ישוב", "סמל קלפי", "בזב", "מצביעים", "פסולים", "כשרים", "אמת"},
		{"5000", "תל אביב - יפו", "12", "600", "500", "5", "495", "495"},
	} {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "votes.xlsx")
	require.NoError(t, f.Save(path))

	p, err := NewVotesParser(FormatXLSX)
	require.NoError(t, err)

	votes, err := p.ParseVotes(path)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, 5000, votes[0].LocalityID)
	assert.Equal(t, "12.0", votes[0].BallotID)
	assert.Equal(t, 495, votes[0].PartiesVotes["amT"])
}

func TestParseVotesMissingColumn(t *testing.T) {
	p, err := NewVotesParser(FormatCSVUTF8)
	require.NoError(t, err)

	_, err = p.ParseVotes(writeFile(t, "votes.csv", []byte("שם ישוב,מספר קלפי\nחיפה,3\n")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locality_id")
}

func TestParseMetadataXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("metadata")
	require.NoError(t, err)
	for _, cells := range [][]string{
		{"סמל ישוב בחירות", "שם ישוב בחירות", "סמל קלפי", "מקום קלפי", "כתובת קלפי"},
		{"9400.0", "חיפה", "3.1", "בית ספר יבנה", "יבנה 27"},
		{"9400.0", "חיפה", "4.0", "מתנס כרמל", "שדרות מוריה 5"},
	} {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	path := filepath.Join(t.TempDir(), "metadata.xlsx")
	require.NoError(t, f.Save(path))

	p, err := NewMetadataParser(FormatXLSX)
	require.NoError(t, err)

	records, err := p.ParseMetadata(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 9400, records[0].LocalityID)
	assert.Equal(t, "3.1", records[0].BallotID)
	assert.Equal(t, "בית ספר יבנה", records[0].LocationName)
	assert.Equal(t, "יבנה 27", records[0].Address)
}

func TestUnknownFormats(t *testing.T) {
	_, err := NewVotesParser("dbf")
	assert.Error(t, err)

	_, err = NewMetadataParser(FormatCSVUTF8)
	assert.Error(t, err)
}

func TestTranscribeHebrew(t *testing.T) {
	assert.Equal(t, "mHl", transcribeHebrew("מחל"))
	assert.Equal(t, "Sn.", transcribeHebrew("שן"))
	assert.Equal(t, "amT", transcribeHebrew("אמת"))
	assert.Equal(t, "x1", transcribeHebrew("x1"))
}

func TestParseHelpers(t *testing.T) {
	id, err := parseLocalityID("9400.0")
	require.NoError(t, err)
	assert.Equal(t, 9400, id)

	_, err = parseLocalityID("haifa")
	assert.Error(t, err)

	n, err := parseCount("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = parseCount("12.0")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}
