package ffmpeg

import (
	"strconv"

	"stagecap/internal/config"
)

// CutSpec describes one clip to cut from a source recording.
type CutSpec struct {
	Source   string
	Dest     string
	StartSec float64
	EndSec   float64
}

// DurationSec returns the clip length.
func (c CutSpec) DurationSec() float64 { return c.EndSec - c.StartSec }

// CutArgs builds the clip invocation. The seek is placed after the input so
// ffmpeg decodes up to the start point and cuts on the exact frame.
func CutArgs(spec CutSpec, enc config.Encoding) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", spec.Source,
		"-ss", formatSeconds(spec.StartSec),
		"-t", formatSeconds(spec.DurationSec()),
	}
	args = append(args, encodeArgs(enc)...)
	return append(args, "-progress", "pipe:1", "-nostats", spec.Dest)
}

// NormalizeArgs builds the post-capture re-encode. fps forces a constant
// output frame rate when positive.
func NormalizeArgs(raw, dest string, fps int, enc config.Encoding) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", raw}
	if fps > 0 {
		args = append(args, "-r", strconv.Itoa(fps))
	}
	args = append(args, encodeArgs(enc)...)
	return append(args, "-movflags", "+faststart", "-progress", "pipe:1", "-nostats", dest)
}

func encodeArgs(enc config.Encoding) []string {
	args := []string{"-c:v", enc.VideoCodec}
	if enc.Preset != "" {
		args = append(args, "-preset", enc.Preset)
	}
	args = append(args, "-crf", strconv.Itoa(enc.CRF), "-c:a", enc.AudioCodec)
	if enc.AudioBitrate != "" {
		args = append(args, "-b:a", enc.AudioBitrate)
	}
	return args
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(max(0, sec), 'f', 3, 64)
}
