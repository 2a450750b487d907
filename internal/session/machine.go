package session

import (
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"stagecap/internal/logging"
	"stagecap/internal/timing"
	"stagecap/internal/words"
)

// Config holds the machine's timing constants.
type Config struct {
	FrameRate   int
	StopTrigger string
	PostRoll    time.Duration
	MaxDuration time.Duration
	StallAfter  time.Duration
}

// Signal is raised by the machine's timers. Timers never touch machine
// state; the owner feeds signals back on its consumer goroutine.
type Signal int

const (
	// SignalStop means the post-roll after a narrative completion elapsed.
	SignalStop Signal = iota + 1
	// SignalTimeout means the hard capture ceiling elapsed.
	SignalTimeout
	// SignalStall means no activity followed a metadata load.
	SignalStall
)

func (s Signal) String() string {
	switch s {
	case SignalStop:
		return "stop"
	case SignalTimeout:
		return "timeout"
	case SignalStall:
		return "stall"
	default:
		return "unknown"
	}
}

// Result describes how one event was handled.
type Result struct {
	Event Event
	// Completion is set when this event ended the session.
	Completion *Completion
	// Err is a malformed-payload or addressing error. It is already logged
	// and never aborts the session.
	Err error
}

// Machine consumes playback events one at a time and builds the timing
// record. It is not safe for concurrent use; callers serialize access.
type Machine struct {
	cfg    Config
	clock  Clock
	notify func(Signal)
	logger *slog.Logger

	show    *timing.Show
	episode *timing.Episode
	events  []Event
	phase   Phase

	started    time.Time
	capturing  bool
	scene      int
	activity   bool
	completion *Completion

	liveness Timer
	stall    Timer
	postRoll Timer
}

// NewMachine constructs a machine. notify receives timer signals and must be
// safe to call from any goroutine.
func NewMachine(cfg Config, clock Clock, notify func(Signal), logger *slog.Logger) *Machine {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if notify == nil {
		notify = func(Signal) {}
	}
	return &Machine{
		cfg:    cfg,
		clock:  clock,
		notify: notify,
		logger: logging.NewComponentLogger(logger, "session"),
		phase:  PhaseWaiting,
		scene:  -1,
	}
}

// Start marks the capture start. Offsets are measured from at and the
// liveness ceiling is armed.
func (m *Machine) Start(at time.Time) {
	m.started = at
	m.capturing = true
	if m.cfg.MaxDuration > 0 && m.completion == nil {
		m.liveness = m.clock.AfterFunc(m.cfg.MaxDuration, func() { m.notify(SignalTimeout) })
	}
}

// OffsetAt returns seconds since capture start, or 0 before capture starts.
func (m *Machine) OffsetAt(at time.Time) float64 {
	if !m.capturing {
		return 0
	}
	return math.Max(0, at.Sub(m.started).Seconds())
}

// HandleEvent appends the event to the log and applies it.
func (m *Machine) HandleEvent(in Incoming) Result {
	at := in.At
	if at.IsZero() {
		at = m.clock.Now()
	}
	offset := in.Offset.Or(m.OffsetAt(at))
	ev := Event{
		Kind:      in.Kind,
		Time:      at.UTC(),
		OffsetSec: offset,
		Frame:     int(math.Floor(offset * float64(m.cfg.FrameRate))),
		Data:      in.Data,
	}
	m.events = append(m.events, ev)
	m.logger.Debug("event",
		logging.String(logging.FieldEventKind, ev.Kind),
		logging.Float64("offset_sec", ev.OffsetSec),
		logging.Int("frame", ev.Frame),
	)

	result := Result{Event: ev}
	payload, err := Decode(in.Kind, in.Data)
	if err != nil {
		logging.WarnWithContext(m.logger, "malformed event payload ignored", "malformed_event",
			logging.String(logging.FieldEventKind, ev.Kind),
			logging.Error(err),
			logging.String(logging.FieldImpact, "event recorded but not applied"),
			logging.String(logging.FieldErrorHint, "check page instrumentation payload shape"),
		)
		result.Err = err
		return result
	}

	if err := m.apply(payload, offset); err != nil {
		logging.WarnWithContext(m.logger, "event addresses unknown scene or dialogue", "addressing_error",
			logging.String(logging.FieldEventKind, ev.Kind),
			logging.Error(err),
			logging.String(logging.FieldImpact, "timing for this line is missing"),
			logging.String(logging.FieldErrorHint, "verify the episode structure loaded before playback"),
		)
		result.Err = err
	}

	m.trackActivity(ev.Kind)

	if m.completion == nil && (IsCompletionKind(ev.Kind) || (m.cfg.StopTrigger != "" && ev.Kind == m.cfg.StopTrigger)) {
		result.Completion = m.complete(ReasonNarrative, ev.Kind, offset)
		m.postRoll = m.clock.AfterFunc(m.cfg.PostRoll, func() { m.notify(SignalStop) })
		m.logger.Info("completion detected",
			logging.String(logging.FieldEventKind, ev.Kind),
			logging.Float64("offset_sec", offset),
			logging.Duration("post_roll", m.cfg.PostRoll),
		)
	}
	return result
}

func (m *Machine) apply(payload Payload, offset float64) error {
	switch p := payload.(type) {
	case ShowLoaded:
		m.show = timing.NewShow(p.Config)
		m.logger.Info("show loaded",
			logging.String("show", m.show.Name),
			logging.Int("actors", len(m.show.Actors)),
			logging.Int("locations", len(m.show.Locations)),
		)
	case EpisodeLoaded:
		m.episode = timing.NewEpisode(p.Config)
		m.scene = -1
		m.logger.Info("episode loaded",
			logging.String("episode", m.episode.Name),
			logging.Int("scenes", len(m.episode.Scenes)),
		)
	case SceneLoaded:
		if err := m.episode.SwitchScene(m.scene, p.Index, offset); err != nil {
			return err
		}
		m.scene = p.Index
	case SpeechOnset:
		return m.episode.ApplySpeechOnset(p.Scene, p.Line, offset, p.Duration, words.Segment(p.Chars))
	case SpeechMarker:
		scene, line := p.Scene, p.Line
		if p.Position > 0 {
			var ok bool
			if scene, line, ok = m.episode.LineAt(p.Position); !ok {
				scene, line = 0, 0
			}
		}
		return m.episode.ApplySpeechMarker(scene, line, offset)
	case PhaseChange:
		if !m.phase.IsTerminal() {
			m.phase = p.To
		}
	}
	return nil
}

// trackActivity arms the stall timer on metadata loads until the first
// playback event, which cancels it for good.
func (m *Machine) trackActivity(kind string) {
	if m.activity || m.completion != nil || isBookkeepingKind(kind) {
		return
	}
	if isMetadataKind(kind) {
		stopTimer(m.stall)
		if m.cfg.StallAfter > 0 {
			m.stall = m.clock.AfterFunc(m.cfg.StallAfter, func() { m.notify(SignalStall) })
		}
		return
	}
	m.activity = true
	stopTimer(m.stall)
	m.stall = nil
}

func (m *Machine) complete(reason Reason, kind string, offset float64) *Completion {
	m.phase = PhaseEnded
	m.completion = &Completion{Reason: reason, Kind: kind, OffsetSec: offset}
	stopTimer(m.liveness)
	stopTimer(m.stall)
	m.liveness, m.stall = nil, nil
	c := *m.completion
	return &c
}

// Expire applies a timeout or stall signal. It returns nil when the session
// had already completed, so a late timer never causes a second stop.
func (m *Machine) Expire(sig Signal) *Completion {
	if m.completion != nil {
		return nil
	}
	var reason Reason
	switch sig {
	case SignalTimeout:
		reason = ReasonTimeout
	case SignalStall:
		reason = ReasonStall
	default:
		return nil
	}
	c := m.complete(reason, "", m.OffsetAt(m.clock.Now()))
	logging.WarnWithContext(m.logger, "session ended without a completion event", "soft_completion",
		logging.String("reason", string(reason)),
		logging.Float64("offset_sec", c.OffsetSec),
		logging.String(logging.FieldImpact, "recording may be truncated or empty"),
		logging.String(logging.FieldErrorHint, "check that playback started and emitted events"),
	)
	return c
}

// Cancel ends the session because the process was interrupted. It returns
// nil when the session had already completed.
func (m *Machine) Cancel() *Completion {
	if m.completion != nil {
		return nil
	}
	return m.complete(ReasonCancelled, "", m.OffsetAt(m.clock.Now()))
}

// Stop logs the capture stop, closes open timing on the last scene, and
// cancels every timer. It returns the stop offset.
func (m *Machine) Stop(at time.Time, data json.RawMessage) float64 {
	res := m.HandleEvent(Incoming{Kind: KindRecordingStop, At: at, Data: data})
	m.episode.Finalize(res.Event.OffsetSec)
	stopTimer(m.liveness)
	stopTimer(m.stall)
	stopTimer(m.postRoll)
	m.liveness, m.stall, m.postRoll = nil, nil, nil
	return res.Event.OffsetSec
}

func stopTimer(t Timer) {
	if t != nil {
		t.Stop()
	}
}

// Phase returns the current narrative phase.
func (m *Machine) Phase() Phase { return m.phase }

// Completion returns how the session ended, if it has.
func (m *Machine) Completion() (Completion, bool) {
	if m.completion == nil {
		return Completion{}, false
	}
	return *m.completion, true
}

// Show returns the show metadata, or nil before it loads.
func (m *Machine) Show() *timing.Show { return m.show }

// Episode returns the timing record, or nil before it loads.
func (m *Machine) Episode() *timing.Episode { return m.episode }

// Events returns a copy of the event log.
func (m *Machine) Events() []Event {
	return append([]Event(nil), m.events...)
}

// EventCount returns the number of logged events.
func (m *Machine) EventCount() int { return len(m.events) }

// StartedAt returns the capture start time.
func (m *Machine) StartedAt() time.Time { return m.started }
