package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stagecap/internal/config"
	"stagecap/internal/logging"
)

// RawSuffix marks a capture file that has not been normalized yet.
const RawSuffix = "_raw"

// Transcoder re-encodes a raw capture into the final mp4.
type Transcoder struct {
	runner  *Runner
	enc     config.Encoding
	fps     int
	keepRaw bool
}

// NewTranscoder builds the post-capture transcoder from configuration.
func NewTranscoder(runner *Runner, cfg *config.Config) *Transcoder {
	t := &Transcoder{runner: runner, enc: cfg.Transcode, keepRaw: cfg.Recorder.KeepRaw}
	if cfg.Recorder.FixFrameRate {
		t.fps = cfg.Recorder.FrameRate
	}
	return t
}

// OutputPath maps a raw capture path to its transcoded name.
func OutputPath(raw string) string {
	dir, base := filepath.Split(raw)
	stem := strings.TrimSuffix(strings.TrimSuffix(base, filepath.Ext(base)), RawSuffix)
	return filepath.Join(dir, stem+".mp4")
}

// Transcode writes OutputPath(raw) and removes the raw file unless configured
// to keep it. On failure the raw file is left untouched.
func (t *Transcoder) Transcode(ctx context.Context, raw string) (string, error) {
	dest := OutputPath(raw)
	if dest == raw {
		return "", fmt.Errorf("transcode: output would overwrite input %s", raw)
	}
	sampler := logging.NewProgressSampler(10)
	logger := t.runner.logger.With(logging.String("raw", filepath.Base(raw)))
	logger.Info("transcoding capture", logging.String("dest", filepath.Base(dest)))

	err := t.runner.Run(ctx, NormalizeArgs(raw, dest, t.fps, t.enc), 0, func(p Progress) {
		if sampler.ShouldLog(p.Percent) {
			logger.Info("transcode progress", logging.Float64("percent", p.Percent), logging.Float64("out_time_sec", p.OutTimeSec))
		}
	})
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove partial transcode", logging.Error(rmErr))
		}
		return "", err
	}
	if !t.keepRaw {
		if err := os.Remove(raw); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "raw capture not removed", "raw_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "raw capture consumes disk space"),
			)
		}
	}
	return dest, nil
}
