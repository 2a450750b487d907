package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Media is the subset of ffprobe output stagecap reads from a recording.
type Media struct {
	DurationSec float64
	FrameRate   float64
	Width       int
	Height      int
	HasAudio    bool
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Inspect runs ffprobe on path. An empty binary means "ffprobe" on PATH.
func Inspect(ctx context.Context, binary, path string) (Media, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Media{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Media{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Media{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON. Unparseable numbers read as zero.
func Parse(data []byte) (Media, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Media{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	m := Media{DurationSec: nonNegative(out.Format.Duration)}
	videoSeen := false
	for _, s := range out.Streams {
		switch strings.ToLower(s.CodecType) {
		case "audio":
			m.HasAudio = true
		case "video":
			if videoSeen {
				continue
			}
			videoSeen = true
			m.Width, m.Height = s.Width, s.Height
			m.FrameRate = parseRate(s.AvgFrameRate)
		}
	}
	return m, nil
}

// parseRate reads "30000/1001" or "25" style rates.
func parseRate(raw string) float64 {
	num, den, ok := strings.Cut(raw, "/")
	n := nonNegative(num)
	if !ok {
		return n
	}
	d := nonNegative(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func nonNegative(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 || v != v {
		return 0
	}
	return v
}
