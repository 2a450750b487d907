package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stagecap/internal/clip"
	"stagecap/internal/config"
)

type extractOptions struct {
	scene     int
	from      int
	to        int
	scenes    string
	start     string
	end       string
	outputDir string
	edlPath   string
	dryRun    bool
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract <video|record>",
		Short: "Cut scenes or a time range out of a recording",
		Long: `Cut clips from a recording using its timing record. Choose exactly one
selection: --scene N, --from A --to B, --scenes 1,4,7, or --start/--end
times given as M:SS or seconds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			sel, err := opts.selection(cmd)
			if err != nil {
				return err
			}
			src, err := openClipSource(cmd.Context(), cfg, logger, args[0])
			if err != nil {
				return err
			}
			cuts, err := src.resolver(cfg, 0).Resolve(sel)
			if err != nil {
				return err
			}
			jobs := clip.Plan(opts.dir(cfg), src.episodeName, cuts)

			if opts.edlPath != "" {
				if err := writeEDLFile(opts.edlPath, src, src.edlFrameRate(cfg.Recorder.FrameRate), cuts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote EDL to %s\n", opts.edlPath)
			}
			if opts.dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(cutHeaders, cutRows(cuts, jobs), cutAligns))
				return nil
			}
			return cutClips(cmd, cfg, logger, src, jobs)
		},
	}

	cmd.Flags().IntVar(&opts.scene, "scene", 0, "Single scene number")
	cmd.Flags().IntVar(&opts.from, "from", 0, "First scene of a contiguous range")
	cmd.Flags().IntVar(&opts.to, "to", 0, "Last scene of a contiguous range")
	cmd.Flags().StringVar(&opts.scenes, "scenes", "", "Comma separated scene numbers, one clip each")
	cmd.Flags().StringVar(&opts.start, "start", "", "Start time (M:SS or seconds)")
	cmd.Flags().StringVar(&opts.end, "end", "", "End time (M:SS or seconds)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Clip directory (defaults to paths.clips_dir)")
	cmd.Flags().StringVar(&opts.edlPath, "edl", "", "Also write a CMX3600 EDL of the cuts")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the resolved cuts without cutting")
	return cmd
}

func (o extractOptions) selection(cmd *cobra.Command) (clip.Selection, error) {
	flags := cmd.Flags()
	var chosen []clip.Selection
	if flags.Changed("scene") {
		chosen = append(chosen, clip.SceneSelection(o.scene))
	}
	if flags.Changed("from") || flags.Changed("to") {
		if !flags.Changed("from") || !flags.Changed("to") {
			return clip.Selection{}, errors.New("--from and --to must be given together")
		}
		chosen = append(chosen, clip.RangeSelection(o.from, o.to))
	}
	if flags.Changed("scenes") {
		list, err := clip.ParseSceneList(o.scenes)
		if err != nil {
			return clip.Selection{}, err
		}
		chosen = append(chosen, clip.SetSelection(list...))
	}
	if flags.Changed("start") || flags.Changed("end") {
		start, err := clip.ParseTime(o.start)
		if err != nil {
			return clip.Selection{}, err
		}
		end, err := clip.ParseTime(o.end)
		if err != nil {
			return clip.Selection{}, err
		}
		chosen = append(chosen, clip.TimeSelection(start, end))
	}
	switch len(chosen) {
	case 0:
		return clip.Selection{}, errors.New("choose a selection: --scene, --from/--to, --scenes, or --start/--end")
	case 1:
		return chosen[0], nil
	default:
		return clip.Selection{}, errors.New("choose only one of --scene, --from/--to, --scenes, --start/--end")
	}
}

func (o extractOptions) dir(cfg *config.Config) string {
	if d := strings.TrimSpace(o.outputDir); d != "" {
		return d
	}
	return cfg.Paths.ClipsDir
}

func writeEDLFile(path string, src *clipSource, fps int, cuts []clip.Cut) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create edl: %w", err)
	}
	if err := clip.WriteEDL(f, src.episodeName, src.video, fps, cuts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
