package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stagecap/internal/clip"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		query     string
		padding   float64
		extract   bool
		outputDir string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "search <video|record>",
		Short: "Find dialogue lines and optionally cut them as clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			src, err := openClipSource(cmd.Context(), cfg, logger, args[0])
			if err != nil {
				return err
			}
			pad := cfg.Clip.SearchPaddingSeconds
			if cmd.Flags().Changed("padding") {
				pad = padding
			}
			if pad < 0 {
				return errors.New("padding must not be negative")
			}
			matches, err := src.resolver(cfg, pad).Search(query)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, matches)
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintf(out, "No timed lines match %q\n", query)
				return nil
			}
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				rows = append(rows, []string{
					strconv.Itoa(m.Scene),
					clip.FormatTime(m.StartSec),
					m.Actor,
					truncate(m.Text, 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Time", "Speaker", "Line"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
			))
			if !extract {
				return nil
			}
			cuts := make([]clip.Cut, len(matches))
			for i, m := range matches {
				cuts[i] = m.Cut
			}
			dir := outputDir
			if dir == "" {
				dir = cfg.Paths.ClipsDir
			}
			return cutClips(cmd, cfg, logger, src, clip.Plan(dir, src.episodeName, cuts))
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Text to look for, case-insensitive")
	cmd.Flags().Float64Var(&padding, "padding", 0, "Seconds added around each match (defaults to clip.search_padding_seconds)")
	cmd.Flags().BoolVar(&extract, "extract", false, "Cut every match as a clip")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Clip directory (defaults to paths.clips_dir)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output matches as JSON")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
