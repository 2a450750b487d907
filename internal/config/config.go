package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	OutputDir       string `toml:"output_dir"`
	ClipsDir        string `toml:"clips_dir"`
	LogDir          string `toml:"log_dir"`
	LedgerPath      string `toml:"ledger_path"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

// Recorder contains capture-session timing and naming settings.
type Recorder struct {
	FrameRate          int     `toml:"frame_rate"`
	StopTrigger        string  `toml:"stop_trigger"`
	PostRollSeconds    float64 `toml:"post_roll_seconds"`
	MaxDurationSeconds int     `toml:"max_duration_seconds"`
	StallSeconds       int     `toml:"stall_seconds"`
	IngestBind         string  `toml:"ingest_bind"`
	FixFrameRate       bool    `toml:"fix_frame_rate"`
	KeepRaw            bool    `toml:"keep_raw"`
	MinFreeGiB         int     `toml:"min_free_gib"`
	ShowName           string  `toml:"show_name"`
	ListPath           string  `toml:"list_path"`
	VideoWidth         int     `toml:"video_width"`
	VideoHeight        int     `toml:"video_height"`
}

// Capture contains settings for the ffmpeg grab capture controller.
type Capture struct {
	Enabled            bool     `toml:"enabled"`
	Format             string   `toml:"format"`
	InputArgs          []string `toml:"input_args"`
	OutputArgs         []string `toml:"output_args"`
	StopTimeoutSeconds int      `toml:"stop_timeout_seconds"`
}

// Encoding describes a fixed ffmpeg re-encode profile.
type Encoding struct {
	VideoCodec   string `toml:"video_codec"`
	Preset       string `toml:"preset"`
	CRF          int    `toml:"crf"`
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Clip contains clip extraction settings.
type Clip struct {
	Encoding
	EncoderLatencySeconds float64 `toml:"encoder_latency_seconds"`
	SearchPaddingSeconds  float64 `toml:"search_padding_seconds"`
	Concurrency           int     `toml:"concurrency"`
	SkipMediaCues         bool    `toml:"skip_media_cues"`
}

// FFmpeg contains external binary names.
type FFmpeg struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Notifications contains configuration for ntfy and kafka notifications.
type Notifications struct {
	NtfyTopic      string   `toml:"ntfy_topic"`
	RequestTimeout int      `toml:"request_timeout"`
	KafkaEnabled   bool     `toml:"kafka_enabled"`
	KafkaBrokers   []string `toml:"kafka_brokers"`
	KafkaTopic     string   `toml:"kafka_topic"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for stagecap.
//
// Configuration sections by subsystem:
//   - Paths: output, clip, and log directories plus ledger/metrics files
//   - Recorder: frame rate, stop trigger, completion timers, ingest bind
//   - Capture: ffmpeg grab arguments for the capture controller
//   - Transcode: post-capture re-encode profile
//   - Clip: clip re-encode profile and boundary constants
//   - FFmpeg: binary names
//   - Notifications: ntfy and kafka delivery
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Recorder      Recorder      `toml:"recorder"`
	Capture       Capture       `toml:"capture"`
	Transcode     Encoding      `toml:"transcode"`
	Clip          Clip          `toml:"clip"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stagecap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stagecap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, clip, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.ClipsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.FFmpeg.FFmpegBinary); v != "" {
		return v
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.FFmpeg.FFprobeBinary); v != "" {
		return v
	}
	return defaultFFprobeBinary
}

// StopTriggerKind returns the configured stop trigger event kind, or "" when
// the trigger is disabled.
func (c *Config) StopTriggerKind() string {
	if c.Recorder.StopTrigger == StopTriggerNever {
		return ""
	}
	return c.Recorder.StopTrigger
}

// PostRoll returns the capture post-roll buffer as a duration.
func (c *Config) PostRoll() time.Duration {
	return time.Duration(c.Recorder.PostRollSeconds * float64(time.Second))
}

// MaxDuration returns the hard capture ceiling.
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.Recorder.MaxDurationSeconds) * time.Second
}

// StallAfter returns the quiet period after a metadata load that counts as a stalled session.
func (c *Config) StallAfter() time.Duration {
	return time.Duration(c.Recorder.StallSeconds) * time.Second
}

// CaptureStopTimeout returns how long the capture controller waits for ffmpeg to flush.
func (c *Config) CaptureStopTimeout() time.Duration {
	return time.Duration(c.Capture.StopTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
