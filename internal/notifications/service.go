package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stagecap/internal/config"
)

// Event identifies a notification milestone.
type Event string

const (
	// EventSessionRecorded fires when a session ended on a narrative signal.
	EventSessionRecorded Event = "session_recorded"
	// EventSessionIncomplete fires when a session ended on timeout, stall, or cancellation.
	EventSessionIncomplete Event = "session_incomplete"
	// EventClipsCut fires after a clip batch.
	EventClipsCut Event = "clips_cut"
	// EventError reports a failure.
	EventError Event = "error"
	// EventTest is sent by the doctor command.
	EventTest Event = "test"
)

// Payload carries event fields. Well-known keys are "base", "reason",
// "duration", "video", "succeeded", "failed", "error", and "context".
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		if v != nil {
			return strings.TrimSpace(v.Error())
		}
	}
	return ""
}

func (p Payload) number(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Close() error
}

// NewService builds the configured transports. With none configured a noop
// service is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil {
		return noopService{}
	}
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var transports multiService
	if topic := strings.TrimSpace(n.NtfyTopic); topic != "" {
		transports = append(transports, newNtfyService(topic, timeout))
	}
	if n.KafkaEnabled && len(n.KafkaBrokers) > 0 {
		transports = append(transports, newKafkaService(n.KafkaBrokers, n.KafkaTopic, timeout, logger))
	}
	switch len(transports) {
	case 0:
		return noopService{}
	case 1:
		return transports[0]
	default:
		return transports
	}
}

// multiService publishes to every transport and joins their errors.
type multiService []Service

func (m multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range m {
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiService) Close() error {
	var errs []error
	for _, svc := range m {
		if err := svc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Close() error                                  { return nil }
