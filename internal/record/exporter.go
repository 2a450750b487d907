package record

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"stagecap/internal/logging"
	"stagecap/internal/session"
)

// Exporter writes finished sessions under one base name. It holds a file
// lock so two recorders never write the same base name concurrently.
type Exporter struct {
	dir       string
	base      string
	eventLog  bool
	now       func() time.Time
	logger    *slog.Logger
	lock      *flock.Flock
	lockPath  string
	lastEvent string
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithEventLog also writes the NDJSON event log next to the record.
func WithEventLog(enabled bool) ExporterOption {
	return func(e *Exporter) { e.eventLog = enabled }
}

// WithClock overrides the recorded_at clock.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExporter constructs an exporter writing to dir.
func NewExporter(dir, base string, logger *slog.Logger, opts ...ExporterOption) *Exporter {
	lockPath := filepath.Join(dir, "."+base+".lock")
	e := &Exporter{
		dir:      dir,
		base:     base,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "record"),
		lock:     flock.New(lockPath),
		lockPath: lockPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lock claims the base name. It fails when another process holds it.
func (e *Exporter) Lock() error {
	ok, err := e.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire record lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another recorder is writing %s (lock %s)", e.base, e.lockPath)
	}
	return nil
}

// Unlock releases the base name.
func (e *Exporter) Unlock() {
	if err := e.lock.Unlock(); err != nil {
		e.logger.Warn("failed to release record lock", logging.Error(err))
	}
}

// Path returns the record path the exporter writes.
func (e *Exporter) Path() string { return Path(e.dir, e.base) }

// EventLogPath returns the event log path, or "" when disabled or not written.
func (e *Exporter) EventLogPath() string { return e.lastEvent }

// Export implements session.Exporter. Without show or episode data there is
// nothing to clip against and only the event log is written.
func (e *Exporter) Export(_ context.Context, snap session.Snapshot) (string, error) {
	if e.eventLog {
		path := EventLogPath(e.dir, e.base)
		var buf bytes.Buffer
		if err := session.WriteEventLog(&buf, snap.Events); err != nil {
			return "", err
		}
		if err := writeFileAtomic(path, buf.Bytes()); err != nil {
			return "", fmt.Errorf("event log: %w", err)
		}
		e.lastEvent = path
		e.logger.Info("event log exported", logging.String("path", path), logging.Int("events", len(snap.Events)))
	}

	if snap.Show == nil && snap.Episode == nil {
		logging.WarnWithContext(e.logger, "no show or episode data captured; record not written", "record_empty",
			logging.String(logging.FieldImpact, "clips cannot be cut from this recording"),
			logging.String(logging.FieldErrorHint, "check that the page emitted load_show/load_episode"),
		)
		return "", nil
	}

	rec := Record{
		Version:     Version,
		RecordedAt:  e.now().UTC(),
		DurationSec: snap.DurationSec,
		VideoFile:   snap.VideoFile,
		Show:        snap.Show,
		Episode:     snap.Episode,
	}
	path := e.Path()
	if err := Write(path, rec); err != nil {
		return "", err
	}
	stats := snap.Episode.Stats()
	e.logger.Info("session record exported",
		logging.String("path", path),
		logging.Int("dialogues_with_words", stats.DialoguesWithWords),
		logging.Int("words", stats.Words),
	)
	return path, nil
}

var _ session.Exporter = (*Exporter)(nil)
