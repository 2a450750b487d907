package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stagecap/internal/clip"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <video|record>",
		Short: "Show the scenes of a recorded episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadRecord(args[0])
			if err != nil {
				return err
			}
			rows := clip.Overview(loaded.Episode)
			if jsonOut {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No scenes recorded")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					strconv.Itoa(r.Number),
					clip.FormatTime(r.StartSec),
					fmt.Sprintf("%.0fs", r.DurationSec),
					r.Location,
					r.Preview,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Start", "Length", "Location", "Preview"},
				table,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			if loaded.Legacy {
				fmt.Fprintf(out, "Loaded legacy record %s\n", loaded.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
