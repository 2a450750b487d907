package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"stagecap/internal/clip"
	"stagecap/internal/config"
	"stagecap/internal/ffmpeg"
	"stagecap/internal/logging"
	"stagecap/internal/media/ffprobe"
	"stagecap/internal/metrics"
	"stagecap/internal/notifications"
	"stagecap/internal/record"
)

const probeTimeout = 30 * time.Second

// clipSource is a recording paired with its loaded timing record.
type clipSource struct {
	video       string
	episodeName string
	loaded      *record.Loaded
	durationSec float64
	frameRate   float64
}

// openClipSource loads the record for target, which is either the video or
// its record. The source duration is probed best-effort for clamping.
func openClipSource(ctx context.Context, cfg *config.Config, logger *slog.Logger, target string) (*clipSource, error) {
	loaded, err := loadRecord(target)
	if err != nil {
		return nil, err
	}
	video := strings.TrimSpace(target)
	if strings.EqualFold(filepath.Ext(video), ".json") {
		if loaded.Record.VideoFile == "" {
			return nil, fmt.Errorf("record %s names no video file; pass the video path instead", loaded.Path)
		}
		video = filepath.Join(filepath.Dir(loaded.Path), loaded.Record.VideoFile)
	}
	src := &clipSource{video: video, episodeName: record.EpisodeName(video), loaded: loaded}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	probe, err := ffprobe.Inspect(probeCtx, cfg.FFprobeBinary(), video)
	if err != nil {
		logging.WarnWithContext(logger, "source duration unknown; cut ends are not clamped", "ffprobe_failed",
			logging.String("video", video),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a cut past the end of the video yields a short clip"),
		)
		return src, nil
	}
	src.durationSec = probe.DurationSec
	src.frameRate = probe.FrameRate
	return src, nil
}

// edlFrameRate prefers the probed rate and falls back to the configured
// capture rate.
func (s *clipSource) edlFrameRate(configured int) int {
	if fps := int(math.Round(s.frameRate)); fps > 0 {
		return fps
	}
	return configured
}

func (s *clipSource) resolver(cfg *config.Config, padding float64) *clip.Resolver {
	return clip.NewResolver(s.loaded.Episode, clip.Options{
		EncoderLatency: cfg.Clip.EncoderLatencySeconds,
		Padding:        padding,
		SourceDuration: s.durationSec,
		SkipMediaCues:  cfg.Clip.SkipMediaCues,
	})
}

// cutClips runs jobs through the executor, recording outcomes in the ledger
// and metrics, and prints a line per clip as each finishes.
func cutClips(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, src *clipSource, jobs []clip.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	m := metrics.New(cfg.Paths.MetricsTextfile, logger)
	defer m.Flush()

	hooks := []func(clip.Outcome){m.CutDone, progressPrinter(cmd.OutOrStdout(), len(jobs))}
	if store := openLedger(cfg, logger); store != nil {
		defer store.Close()
		hooks = append(hooks, store.CutHook(src.video, logger))
	}

	cutter := ffmpeg.NewCutter(ffmpeg.NewRunner(cfg.FFmpegBinary(), logger), cfg.Clip.Encoding)
	executor := clip.NewExecutor(cutter, logger,
		clip.WithConcurrency(cfg.Clip.Concurrency),
		clip.WithOutcomeHook(func(out clip.Outcome) {
			for _, hook := range hooks {
				hook(out)
			}
		}),
	)
	outcomes := executor.Run(cmd.Context(), src.video, jobs)
	failed := clip.Failed(outcomes)

	notifier := notifications.NewService(cfg, logger)
	defer notifier.Close()
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), notifyTimeout)
	defer cancel()
	payload := notifications.Payload{"base": src.episodeName, "succeeded": len(outcomes) - failed, "failed": failed}
	if err := notifier.Publish(notifyCtx, notifications.EventClipsCut, payload); err != nil {
		logger.Warn("clip notification failed", logging.Error(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d clips written to %s\n", len(outcomes)-failed, len(outcomes), filepath.Dir(jobs[0].Dest))
	if failed > 0 {
		return fmt.Errorf("%d clip(s) failed", failed)
	}
	return nil
}

// progressPrinter reports finished clips. Color is used only on terminals.
func progressPrinter(w io.Writer, total int) func(clip.Outcome) {
	var (
		mu   sync.Mutex
		done int
	)
	colorize := shouldColorize(w)
	return func(out clip.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		done++
		kind, msg := statusOK, fmt.Sprintf("%.1fs", out.Elapsed.Seconds())
		if out.Err != nil {
			kind, msg = statusError, out.Err.Error()
		}
		label := fmt.Sprintf("[%d/%d] %s", done, total, filepath.Base(out.Job.Dest))
		fmt.Fprintln(w, renderStatusLine(label, kind, msg, colorize))
	}
}

func cutRows(cuts []clip.Cut, jobs []clip.Job) [][]string {
	rows := make([][]string, 0, len(cuts))
	for i, c := range cuts {
		dest := ""
		if i < len(jobs) {
			dest = filepath.Base(jobs[i].Dest)
		}
		rows = append(rows, []string{
			c.Label,
			fmt.Sprintf("%.2f", c.StartSec),
			fmt.Sprintf("%.2f", c.EndSec),
			fmt.Sprintf("%.2f", c.DurationSec()),
			dest,
		})
	}
	return rows
}

var (
	cutHeaders = []string{"Cut", "Start", "End", "Length", "Output"}
	cutAligns  = []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft}
)
