package notifications

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"stagecap/internal/logging"
	"stagecap/internal/session"
)

const publishTimeout = 15 * time.Second

// SessionNotifier publishes the end of a session. It implements
// session.Observer.
type SessionNotifier struct {
	svc    Service
	base   string
	logger *slog.Logger
}

// NewSessionNotifier constructs a notifier for the session named base.
func NewSessionNotifier(svc Service, base string, logger *slog.Logger) *SessionNotifier {
	return &SessionNotifier{svc: svc, base: base, logger: logging.NewComponentLogger(logger, "notifications")}
}

// EventHandled implements session.Observer.
func (n *SessionNotifier) EventHandled(session.Result) {}

// SessionEnded implements session.Observer.
func (n *SessionNotifier) SessionEnded(sum session.Summary) {
	event := EventSessionRecorded
	if sum.Completion.Reason != session.ReasonNarrative {
		event = EventSessionIncomplete
	}
	video := sum.VideoPath
	if video == "" {
		video = sum.RawPath
	}
	payload := Payload{
		"base":     n.base,
		"session":  sum.SessionID,
		"reason":   string(sum.Completion.Reason),
		"duration": (time.Duration(sum.DurationSec) * time.Second).String(),
		"events":   sum.Events,
		"words":    sum.Stats.Words,
	}
	if video != "" {
		payload["video"] = filepath.Base(video)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.svc.Publish(ctx, event, payload); err != nil {
		n.logger.Warn("session notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

var _ session.Observer = (*SessionNotifier)(nil)
