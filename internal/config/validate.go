package config

import (
	"errors"
	"fmt"
	"slices"
)

// StopTriggerNever disables the configurable stop trigger; the fixed
// completion events still end a session.
const StopTriggerNever = "never"

var stopTriggers = []string{
	"start_intro", "end_intro",
	"start_ep", "end_ep",
	"start_credits", "end_credits",
	"start_postcredits", "end_postcredits",
	"episode_end", StopTriggerNever,
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecorder(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := validateEncoding("transcode", c.Transcode); err != nil {
		return err
	}
	if err := c.validateClip(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRecorder() error {
	if c.Recorder.FrameRate <= 0 {
		return errors.New("recorder.frame_rate must be positive")
	}
	if !slices.Contains(stopTriggers, c.Recorder.StopTrigger) {
		return fmt.Errorf("recorder.stop_trigger %q is not one of %v", c.Recorder.StopTrigger, stopTriggers)
	}
	if c.Recorder.PostRollSeconds < 0 {
		return errors.New("recorder.post_roll_seconds must be >= 0")
	}
	if c.Recorder.MaxDurationSeconds < 0 {
		return errors.New("recorder.max_duration_seconds must be >= 0")
	}
	if c.Recorder.StallSeconds < 0 {
		return errors.New("recorder.stall_seconds must be >= 0")
	}
	if c.Recorder.MinFreeGiB < 0 {
		return errors.New("recorder.min_free_gib must be >= 0")
	}
	if c.Recorder.VideoWidth <= 0 || c.Recorder.VideoHeight <= 0 {
		return errors.New("recorder.video_width and recorder.video_height must be positive")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.Enabled && len(c.Capture.InputArgs) == 0 {
		return errors.New("capture.input_args must be set when capture.enabled is true")
	}
	return nil
}

func validateEncoding(section string, enc Encoding) error {
	if enc.CRF < 0 || enc.CRF > 51 {
		return fmt.Errorf("%s.crf must be between 0 and 51", section)
	}
	return nil
}

func (c *Config) validateClip() error {
	if err := validateEncoding("clip", c.Clip.Encoding); err != nil {
		return err
	}
	if c.Clip.EncoderLatencySeconds < 0 {
		return errors.New("clip.encoder_latency_seconds must be >= 0")
	}
	if c.Clip.SearchPaddingSeconds < 0 {
		return errors.New("clip.search_padding_seconds must be >= 0")
	}
	if c.Clip.Concurrency < 1 {
		return errors.New("clip.concurrency must be >= 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.KafkaEnabled && len(c.Notifications.KafkaBrokers) == 0 {
		return errors.New("notifications.kafka_brokers must be set when notifications.kafka_enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
