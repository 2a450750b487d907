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
	"stagecap/internal/services"
)

// Cutter cuts clips out of a recording.
type Cutter struct {
	runner *Runner
	enc    config.Encoding
}

// NewCutter constructs a cutter with a fixed encode profile.
func NewCutter(runner *Runner, enc config.Encoding) *Cutter {
	return &Cutter{runner: runner, enc: enc}
}

// Cut writes spec.Dest. A failed invocation never leaves a partial file
// behind; the destination is removed before the error is returned.
func (c *Cutter) Cut(ctx context.Context, spec CutSpec, progress func(Progress)) error {
	if strings.TrimSpace(spec.Source) == "" || strings.TrimSpace(spec.Dest) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "cut", "source and destination required", nil)
	}
	if spec.StartSec < 0 || spec.EndSec <= spec.StartSec {
		return services.Wrap(services.ErrInvalidSelection, "ffmpeg", "cut",
			fmt.Sprintf("empty interval %.3f-%.3f", spec.StartSec, spec.EndSec), nil)
	}
	if err := os.MkdirAll(filepath.Dir(spec.Dest), 0o755); err != nil {
		return fmt.Errorf("create clip directory: %w", err)
	}

	sampler := logging.NewProgressSampler(25)
	err := c.runner.Run(ctx, CutArgs(spec, c.enc), spec.DurationSec(), func(p Progress) {
		if sampler.ShouldLog(p.Percent) {
			c.runner.logger.Debug("cut progress",
				logging.String("dest", filepath.Base(spec.Dest)),
				logging.Float64("percent", p.Percent),
			)
		}
		if progress != nil {
			progress(p)
		}
	})
	if err != nil {
		if rmErr := os.Remove(spec.Dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.runner.logger.Warn("failed to remove partial clip", logging.String("dest", spec.Dest), logging.Error(rmErr))
		}
		return err
	}
	return nil
}
