package ledger

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"stagecap/internal/clip"
	"stagecap/internal/logging"
	"stagecap/internal/session"
)

const writeTimeout = 5 * time.Second

// SessionObserver records finished sessions under one base name.
type SessionObserver struct {
	store  *Store
	base   string
	logger *slog.Logger
}

// NewSessionObserver constructs a session.Observer backed by store.
func NewSessionObserver(store *Store, base string, logger *slog.Logger) *SessionObserver {
	return &SessionObserver{store: store, base: base, logger: logging.NewComponentLogger(logger, "ledger")}
}

// EventHandled implements session.Observer.
func (o *SessionObserver) EventHandled(session.Result) {}

// SessionEnded implements session.Observer.
func (o *SessionObserver) SessionEnded(sum session.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	video := sum.VideoPath
	if video == "" {
		video = sum.RawPath
	}
	if video != "" {
		video = filepath.Base(video)
	}
	err := o.store.RecordSession(ctx, SessionEntry{
		ID:             sum.SessionID,
		BaseName:       o.base,
		Reason:         string(sum.Completion.Reason),
		CompletionKind: sum.Completion.Kind,
		Phase:          sum.Phase.String(),
		DurationSec:    sum.DurationSec,
		Events:         sum.Events,
		Words:          sum.Stats.Words,
		VideoFile:      video,
		RecordPath:     sum.RecordPath,
	})
	if err != nil {
		logging.WarnWithContext(o.logger, "failed to record session in ledger", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session missing from history"),
		)
	}
}

var _ session.Observer = (*SessionObserver)(nil)

// CutHook returns a clip executor hook that appends each outcome.
func (s *Store) CutHook(source string, logger *slog.Logger) func(clip.Outcome) {
	logger = logging.NewComponentLogger(logger, "ledger")
	return func(out clip.Outcome) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		entry := CutEntry{
			Source:   source,
			Label:    out.Job.Cut.Label,
			StartSec: out.Job.Cut.StartSec,
			EndSec:   out.Job.Cut.EndSec,
			Dest:     out.Job.Dest,
			Status:   out.Status(),
			Elapsed:  out.Elapsed,
		}
		if out.Err != nil {
			entry.ErrorMessage = out.Err.Error()
		}
		if _, err := s.RecordCut(ctx, entry); err != nil {
			logger.Warn("failed to record cut in ledger", logging.Error(err))
		}
	}
}
