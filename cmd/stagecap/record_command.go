package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"stagecap/internal/capture"
	"stagecap/internal/config"
	"stagecap/internal/ffmpeg"
	"stagecap/internal/ingest"
	"stagecap/internal/ledger"
	"stagecap/internal/logging"
	"stagecap/internal/metrics"
	"stagecap/internal/notifications"
	"stagecap/internal/preflight"
	"stagecap/internal/record"
	"stagecap/internal/session"
)

type recordOptions struct {
	url           string
	date          string
	show          string
	name          string
	bind          string
	video         string
	eventLog      bool
	noCapture     bool
	skipPreflight bool
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var opts recordOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture one episode while collecting its timing record",
		Long: `Start the capture, accept playback events on the ingest listener, and
export the session record once the episode completes, times out, stalls,
or the command is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			return runRecord(cmd, cfg, logger, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "Episode playback URL; its slug names the outputs")
	cmd.Flags().StringVar(&opts.date, "date", "", "Date prefix for output names (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.show, "show", "", "Show name for output names (defaults to recorder.show_name)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Explicit base name, overriding url/date/show naming")
	cmd.Flags().StringVar(&opts.bind, "bind", "", "Ingest listener address (defaults to recorder.ingest_bind)")
	cmd.Flags().StringVar(&opts.video, "video", "", "Externally recorded video to reference when capture is off")
	cmd.Flags().BoolVar(&opts.eventLog, "event-log", false, "Also write the NDJSON event log")
	cmd.Flags().BoolVar(&opts.noCapture, "no-capture", false, "Collect timing only; do not start the screen grab")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Start even when readiness checks fail")
	return cmd
}

func runRecord(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, opts recordOptions) error {
	base, err := resolveBaseName(cfg, opts)
	if err != nil {
		return err
	}
	if strings.TrimSpace(opts.bind) != "" {
		cfg.Recorder.IngestBind = strings.TrimSpace(opts.bind)
	}
	captureOn := cfg.Capture.Enabled && !opts.noCapture
	cfg.Capture.Enabled = captureOn

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.skipPreflight {
		if failed := preflight.Failed(preflight.RunAll(runCtx, cfg)); len(failed) > 0 {
			lines := make([]string, 0, len(failed))
			for _, r := range failed {
				lines = append(lines, fmt.Sprintf("%s: %s", r.Name, r.Detail))
			}
			return fmt.Errorf("preflight failed (run `stagecap doctor` for details):\n  %s", strings.Join(lines, "\n  "))
		}
	}

	sessionID := uuid.NewString()
	sessionLogPath := filepath.Join(cfg.Paths.LogDir, base+"_session.log")
	sessionLogger, closer, err := logging.SessionLogger(logger, sessionID, sessionLogPath)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer closer.Close()
	logger = sessionLogger
	logging.PruneSessionLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, time.Now(), sessionLogPath)

	exporter := record.NewExporter(cfg.Paths.OutputDir, base, logger, record.WithEventLog(opts.eventLog))
	if err := exporter.Lock(); err != nil {
		return err
	}
	defer exporter.Unlock()

	var (
		grab       session.Capture = capture.Nop{Path: strings.TrimSpace(opts.video)}
		transcoder session.Transcoder
	)
	if captureOn {
		raw := record.RawCapturePath(cfg.Paths.OutputDir, base, cfg.Capture.Format)
		grab = capture.NewGrabber(cfg, raw, logger)
		transcoder = ffmpeg.NewTranscoder(ffmpeg.NewRunner(cfg.FFmpegBinary(), logger), cfg)
	}

	m := metrics.New(cfg.Paths.MetricsTextfile, logger)
	notifier := notifications.NewService(cfg, logger)
	defer notifier.Close()
	observers := session.Observers{m, notifications.NewSessionNotifier(notifier, base, logger)}
	if store := openLedger(cfg, logger); store != nil {
		defer store.Close()
		observers = append(observers, ledger.NewSessionObserver(store, base, logger))
	}

	runner := session.NewRunner(sessionConfig(cfg), session.RunnerOptions{
		SessionID:  sessionID,
		Capture:    grab,
		Transcoder: transcoder,
		Exporter:   exporter,
		Observer:   observers,
		Logger:     logger,
		StartData: map[string]any{
			"width":  cfg.Recorder.VideoWidth,
			"height": cfg.Recorder.VideoHeight,
			"fps":    cfg.Recorder.FrameRate,
			"format": cfg.Capture.Format,
			"url":    opts.url,
			"base":   base,
		},
	})

	server := ingest.NewServer(cfg.Recorder.IngestBind, runner, logger, ingest.WithHandler("/metrics", m.Handler()))
	if err := server.Start(runCtx); err != nil {
		return err
	}
	defer server.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recording %s (session %s)\n", base, sessionID)
	if addr := server.Addr(); addr != "" {
		fmt.Fprintf(out, "Ingest listening on http://%s\n", addr)
	}

	sum, runErr := runner.Run(runCtx)
	printSessionSummary(cmd, base, sum)
	if runErr != nil {
		publishError(notifier, logger, base, runErr)
		return runErr
	}
	if sum.Completion.Reason == session.ReasonCancelled {
		return errors.New("recording interrupted; partial record kept")
	}
	return nil
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		FrameRate:   cfg.Recorder.FrameRate,
		StopTrigger: cfg.StopTriggerKind(),
		PostRoll:    cfg.PostRoll(),
		MaxDuration: cfg.MaxDuration(),
		StallAfter:  cfg.StallAfter(),
	}
}

func resolveBaseName(cfg *config.Config, opts recordOptions) (string, error) {
	if name := strings.TrimSpace(opts.name); name != "" {
		return name, nil
	}
	slug := record.Slug(opts.url)
	if slug == "" {
		return "", errors.New("an episode --url or an explicit --name is required")
	}
	list, err := record.LoadDateList(cfg.Recorder.ListPath)
	if err != nil {
		return "", err
	}
	show := strings.TrimSpace(opts.show)
	if show == "" {
		show = cfg.Recorder.ShowName
	}
	date := record.ResolveDate(strings.TrimSpace(opts.date), list, slug, time.Now())
	return record.BaseName(date, show, slug), nil
}

func printSessionSummary(cmd *cobra.Command, base string, sum session.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s finished: %s", base, sum.Completion.Reason)
	if sum.Completion.Kind != "" {
		fmt.Fprintf(out, " (%s)", sum.Completion.Kind)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Duration:  %s\n", formatSeconds(sum.DurationSec))
	fmt.Fprintf(out, "  Events:    %d\n", sum.Events)
	fmt.Fprintf(out, "  Words:     %d in %d dialogues\n", sum.Stats.Words, sum.Stats.DialoguesWithWords)
	if sum.VideoPath != "" {
		fmt.Fprintf(out, "  Video:     %s\n", sum.VideoPath)
	}
	if sum.RecordPath != "" {
		fmt.Fprintf(out, "  Record:    %s\n", sum.RecordPath)
	} else {
		fmt.Fprintln(out, "  Record:    not written (no show or episode data)")
	}
}
