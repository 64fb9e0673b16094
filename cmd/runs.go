package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zachmoshe/il-elections/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent preprocessing runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"id", "campaign", "status", "started", "finished"})
		for _, r := range runs {
			finished := ""
			if r.FinishedAt != nil {
				finished = r.FinishedAt.Format("2006-01-02 15:04:05")
			}
			tw.AppendRow(table.Row{
				r.ID, r.Campaign, r.Status,
				r.StartedAt.Format("2006-01-02 15:04:05"), finished,
			})
		}
		tw.Render()
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to show")
	rootCmd.AddCommand(runsCmd)
}
