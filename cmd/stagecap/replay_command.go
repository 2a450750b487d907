package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stagecap/internal/record"
	"stagecap/internal/session"
)

type replayResult struct {
	Base        string              `json:"base"`
	RecordPath  string              `json:"record_path,omitempty"`
	Events      int                 `json:"events"`
	DurationSec float64             `json:"duration_sec"`
	Phase       session.Phase       `json:"phase"`
	Completion  *session.Completion `json:"completion,omitempty"`
	Words       int                 `json:"words"`
	Dialogues   int                 `json:"dialogues_with_words"`
}

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var (
		name      string
		outputDir string
		video     string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "replay <events.ndjson>",
		Short: "Rebuild a session record from a recorded event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			logPath := args[0]
			f, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("open event log: %w", err)
			}
			events, err := session.ReadEventLog(f)
			f.Close()
			if err != nil {
				return err
			}

			m := session.Replay(events, sessionConfig(cfg), logger)

			base := strings.TrimSpace(name)
			if base == "" {
				base = strings.TrimSuffix(filepath.Base(logPath), record.EventLogSuffix)
				base = strings.TrimSuffix(base, filepath.Ext(base))
			}
			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = filepath.Dir(logPath)
			}
			videoFile := strings.TrimSpace(video)
			if videoFile == "" {
				videoFile = recordedVideo(events)
			}

			snap := session.Snapshot{
				StartedAt: m.StartedAt(),
				Show:      m.Show(),
				Episode:   m.Episode(),
				Events:    m.Events(),
				VideoFile: videoFile,
			}
			if n := len(events); n > 0 {
				snap.DurationSec = events[n-1].OffsetSec
			}
			res := replayResult{Base: base, Events: m.EventCount(), DurationSec: snap.DurationSec, Phase: m.Phase()}
			if c, ok := m.Completion(); ok {
				snap.Completion = c
				res.Completion = &c
			}

			exporter := record.NewExporter(dir, base, logger)
			if err := exporter.Lock(); err != nil {
				return err
			}
			defer exporter.Unlock()
			res.RecordPath, err = exporter.Export(cmd.Context(), snap)
			if err != nil {
				return err
			}
			if ep := m.Episode(); ep != nil {
				stats := ep.Stats()
				res.Words = stats.Words
				res.Dialogues = stats.DialoguesWithWords
			}

			if jsonOut {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Replayed %d events (%s)\n", res.Events, formatSeconds(res.DurationSec))
			if res.Completion != nil {
				fmt.Fprintf(out, "Completion: %s %s at %.2fs\n", res.Completion.Reason, res.Completion.Kind, res.Completion.OffsetSec)
			}
			fmt.Fprintf(out, "Words: %d in %d dialogues\n", res.Words, res.Dialogues)
			if res.RecordPath == "" {
				fmt.Fprintln(out, "No show or episode data in log; record not written")
				return nil
			}
			fmt.Fprintf(out, "Record: %s\n", res.RecordPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Base name for the record (defaults to the log's base name)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the record (defaults to the log's directory)")
	cmd.Flags().StringVar(&video, "video", "", "Video file name to reference in the record")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// recordedVideo returns the capture file named by the recording_stop event.
func recordedVideo(events []session.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind != session.KindRecordingStop {
			continue
		}
		var data struct {
			File string `json:"file"`
		}
		if json.Unmarshal(events[i].Data, &data) == nil && data.File != "" {
			return filepath.Base(data.File)
		}
		return ""
	}
	return ""
}
