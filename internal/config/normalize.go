package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecorder()
	c.normalizeCapture()
	normalizeEncoding(&c.Transcode, defaultTranscodePreset)
	normalizeEncoding(&c.Clip.Encoding, defaultClipPreset)
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ClipsDir) == "" {
		c.Paths.ClipsDir = filepath.Join(c.Paths.OutputDir, "clips")
	}
	if c.Paths.ClipsDir, err = expandPath(c.Paths.ClipsDir); err != nil {
		return fmt.Errorf("paths.clips_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = filepath.Join(c.Paths.LogDir, defaultLedgerFile)
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if c.Paths.MetricsTextfile, err = expandPath(strings.TrimSpace(c.Paths.MetricsTextfile)); err != nil {
		return fmt.Errorf("paths.metrics_textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecorder() {
	c.Recorder.StopTrigger = strings.ToLower(strings.TrimSpace(c.Recorder.StopTrigger))
	if c.Recorder.StopTrigger == "" {
		c.Recorder.StopTrigger = defaultStopTrigger
	}
	c.Recorder.IngestBind = strings.TrimSpace(c.Recorder.IngestBind)
	if c.Recorder.IngestBind == "" {
		c.Recorder.IngestBind = defaultIngestBind
	}
	c.Recorder.ShowName = strings.TrimSpace(c.Recorder.ShowName)
	if c.Recorder.ShowName == "" {
		c.Recorder.ShowName = defaultShowName
	}
	if c.Recorder.ListPath != "" {
		if expanded, err := expandPath(strings.TrimSpace(c.Recorder.ListPath)); err == nil {
			c.Recorder.ListPath = expanded
		}
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.Format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Capture.Format)), ".")
	if c.Capture.Format == "" {
		c.Capture.Format = defaultCaptureFormat
	}
	if c.Capture.StopTimeoutSeconds <= 0 {
		c.Capture.StopTimeoutSeconds = defaultCaptureStopTimeout
	}
}

func normalizeEncoding(enc *Encoding, preset string) {
	enc.VideoCodec = strings.TrimSpace(enc.VideoCodec)
	if enc.VideoCodec == "" {
		enc.VideoCodec = defaultTranscodeCodec
	}
	enc.Preset = strings.TrimSpace(enc.Preset)
	if enc.Preset == "" {
		enc.Preset = preset
	}
	enc.AudioCodec = strings.TrimSpace(enc.AudioCodec)
	if enc.AudioCodec == "" {
		enc.AudioCodec = defaultAudioCodec
	}
	enc.AudioBitrate = strings.TrimSpace(enc.AudioBitrate)
	if enc.AudioBitrate == "" {
		enc.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("STAGECAP_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if len(c.Notifications.KafkaBrokers) == 0 {
		if value, ok := os.LookupEnv("STAGECAP_KAFKA_BROKERS"); ok {
			c.Notifications.KafkaBrokers = strings.Split(value, ",")
		}
	}
	brokers := c.Notifications.KafkaBrokers[:0]
	for _, broker := range c.Notifications.KafkaBrokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	c.Notifications.KafkaBrokers = brokers
	c.Notifications.KafkaTopic = strings.TrimSpace(c.Notifications.KafkaTopic)
	if c.Notifications.KafkaTopic == "" {
		c.Notifications.KafkaTopic = defaultKafkaTopic
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
