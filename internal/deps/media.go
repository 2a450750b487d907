package deps

// MediaRequirements lists the binaries used for capture, transcoding, and clipping.
// Capture needs ffmpeg only when a grab controller is configured.
func MediaRequirements(ffmpegBinary, ffprobeBinary string, captureEnabled bool) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for transcoding and clip extraction",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobeBinary,
			Description: "Required for frame-rate checks and clip clamping",
		},
		{
			Name:        "FFmpeg capture",
			Command:     ffmpegBinary,
			Description: "Screen grab during recording",
			Optional:    !captureEnabled,
		},
	}
}
