package config

const (
	defaultOutputDir             = "~/episodes"
	defaultClipsDir              = "~/episodes/clips"
	defaultLogDir                = "~/.local/share/stagecap/logs"
	defaultLedgerFile            = "ledger.db"
	defaultFrameRate             = 30
	defaultStopTrigger           = "end_postcredits"
	defaultPostRollSeconds       = 3.0
	defaultMaxDurationSeconds    = 3600
	defaultStallSeconds          = 90
	defaultIngestBind            = "127.0.0.1:7491"
	defaultMinFreeGiB            = 5
	defaultShowName              = "Show"
	defaultVideoWidth            = 1920
	defaultVideoHeight           = 1080
	defaultCaptureFormat         = "webm"
	defaultCaptureStopTimeout    = 15
	defaultTranscodeCodec        = "libx264"
	defaultTranscodePreset       = "medium"
	defaultTranscodeCRF          = 23
	defaultAudioCodec            = "aac"
	defaultAudioBitrate          = "192k"
	defaultClipPreset            = "fast"
	defaultClipCRF               = 18
	defaultEncoderLatencySeconds = 0.17
	defaultSearchPaddingSeconds  = 2.0
	defaultClipConcurrency       = 2
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultNotifyRequestTimeout  = 10
	defaultKafkaTopic            = "stagecap.events"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			ClipsDir:  defaultClipsDir,
			LogDir:    defaultLogDir,
		},
		Recorder: Recorder{
			FrameRate:          defaultFrameRate,
			StopTrigger:        defaultStopTrigger,
			PostRollSeconds:    defaultPostRollSeconds,
			MaxDurationSeconds: defaultMaxDurationSeconds,
			StallSeconds:       defaultStallSeconds,
			IngestBind:         defaultIngestBind,
			FixFrameRate:       true,
			MinFreeGiB:         defaultMinFreeGiB,
			ShowName:           defaultShowName,
			VideoWidth:         defaultVideoWidth,
			VideoHeight:        defaultVideoHeight,
		},
		Capture: Capture{
			Enabled: true,
			Format:  defaultCaptureFormat,
			InputArgs: []string{
				"-f", "x11grab", "-framerate", "30", "-video_size", "1920x1080", "-i", ":99",
				"-f", "pulse", "-i", "default",
			},
			OutputArgs:         []string{"-c:v", "libvpx", "-b:v", "8M", "-c:a", "libopus"},
			StopTimeoutSeconds: defaultCaptureStopTimeout,
		},
		Transcode: Encoding{
			VideoCodec:   defaultTranscodeCodec,
			Preset:       defaultTranscodePreset,
			CRF:          defaultTranscodeCRF,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
		},
		Clip: Clip{
			Encoding: Encoding{
				VideoCodec:   defaultTranscodeCodec,
				Preset:       defaultClipPreset,
				CRF:          defaultClipCRF,
				AudioCodec:   defaultAudioCodec,
				AudioBitrate: defaultAudioBitrate,
			},
			EncoderLatencySeconds: defaultEncoderLatencySeconds,
			SearchPaddingSeconds:  defaultSearchPaddingSeconds,
			Concurrency:           defaultClipConcurrency,
			SkipMediaCues:         true,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			KafkaTopic:     defaultKafkaTopic,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
