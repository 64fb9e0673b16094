package pipeline

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zachmoshe/il-elections/internal/model"
)

const (
	topPartiesInReport     = 5
	missingGeoRowsInReport = 10
)

// WriteReport prints a human-readable campaign summary: headline numbers, the
// leading parties and the most common unresolved locations.
func WriteReport(w io.Writer, campaign model.Campaign, analysis *Analysis, stats *Stats) {
	fmt.Fprintf(w, "Campaign %s (%s)\n", campaign.Name, campaign.Date.Format("2006-01-02"))
	fmt.Fprintf(w, "  registered voters: %d\n", analysis.NumVoters)
	fmt.Fprintf(w, "  voted:             %d (%.1f%%)\n", analysis.NumVoted, analysis.VotingRatio*100)
	fmt.Fprintf(w, "  ballots:           %d (exact %d, fallback %d, unresolved %d)\n",
		stats.NumBallots, stats.NumExact, stats.NumFallback, stats.NumUnresolved)
	if stats.ServiceErrors > 0 {
		fmt.Fprintf(w, "  geocoder errors:   %d\n", stats.ServiceErrors)
	}
	fmt.Fprintln(w)

	writePartiesTable(w, analysis)
	writeMissingGeoTable(w, analysis)
}

func writePartiesTable(w io.Writer, analysis *Analysis) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Top parties")
	tw.AppendHeader(table.Row{"party", "votes", "share"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	total := analysis.PartiesVotes.Total()
	for _, pc := range analysis.TopParties(topPartiesInReport) {
		share := 0.0
		if total > 0 {
			share = float64(pc.Votes) / float64(total) * 100
		}
		tw.AppendRow(table.Row{pc.Party, pc.Votes, fmt.Sprintf("%.1f%%", share)})
	}
	tw.Render()
	fmt.Fprintln(w)
}

func writeMissingGeoTable(w io.Writer, analysis *Analysis) {
	if len(analysis.MissingGeo) == 0 {
		fmt.Fprintln(w, "All ballots resolved to a location.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Unresolved locations")
	tw.AppendHeader(table.Row{"locality", "location", "address", "ballots"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})

	rows := analysis.MissingGeo
	if len(rows) > missingGeoRowsInReport {
		rows = rows[:missingGeoRowsInReport]
	}
	for _, g := range rows {
		tw.AppendRow(table.Row{g.LocalityName, g.LocationName, g.Address, g.NumBallots})
	}
	tw.Render()
	if extra := len(analysis.MissingGeo) - len(rows); extra > 0 {
		fmt.Fprintf(w, "... and %d more location groups\n", extra)
	}
}
