package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"stagecap/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		sessions bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent clip cuts or recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			store := openLedger(cfg, logger)
			if store == nil {
				return errors.New("ledger is unavailable; check paths.ledger_path")
			}
			defer store.Close()

			if sessions {
				entries, err := store.RecentSessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, entries)
				}
				return printSessions(cmd, entries)
			}
			entries, err := store.RecentCuts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			return printCuts(cmd, entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "List recorded sessions instead of cuts")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printCuts(cmd *cobra.Command, entries []ledger.CutEntry) error {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No cuts recorded")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := e.Status
		if e.ErrorMessage != "" {
			status += ": " + truncate(e.ErrorMessage, 40)
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(e.Source),
			e.Label,
			fmt.Sprintf("%.2f-%.2f", e.StartSec, e.EndSec),
			filepath.Base(e.Dest),
			status,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"When", "Source", "Cut", "Interval", "Output", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func printSessions(cmd *cobra.Command, entries []ledger.SessionEntry) error {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		reason := e.Reason
		if e.CompletionKind != "" {
			reason += " (" + e.CompletionKind + ")"
		}
		rows = append(rows, []string{
			e.FinishedAt.Local().Format("2006-01-02 15:04"),
			e.BaseName,
			reason,
			formatSeconds(e.DurationSec),
			fmt.Sprintf("%d", e.Words),
			e.VideoFile,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"When", "Episode", "Ended", "Length", "Words", "Video"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}
