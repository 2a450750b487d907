package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"stagecap/internal/logging"
	"stagecap/internal/services"
	"stagecap/internal/timing"
)

// ErrClosed is returned when submitting to a runner that is no longer consuming.
var ErrClosed = errors.New("session closed")

// Capture starts the audio/video stream.
type Capture interface {
	Start(ctx context.Context) (Stream, error)
}

// Stream is a running capture. Stop flushes and closes it and returns the
// path of the raw recording.
type Stream interface {
	Stop(ctx context.Context) (string, error)
}

// Transcoder turns the raw recording into the final video and returns its path.
type Transcoder interface {
	Transcode(ctx context.Context, rawPath string) (string, error)
}

// Exporter persists the finished session and returns the record path.
type Exporter interface {
	Export(ctx context.Context, snap Snapshot) (string, error)
}

// Observer receives session progress. Calls happen on the consumer goroutine.
type Observer interface {
	EventHandled(res Result)
	SessionEnded(sum Summary)
}

// Observers fans progress out to several observers in order.
type Observers []Observer

// EventHandled implements Observer.
func (o Observers) EventHandled(res Result) {
	for _, obs := range o {
		if obs != nil {
			obs.EventHandled(res)
		}
	}
}

// SessionEnded implements Observer.
func (o Observers) SessionEnded(sum Summary) {
	for _, obs := range o {
		if obs != nil {
			obs.SessionEnded(sum)
		}
	}
}

// Snapshot is everything an exporter needs to persist a session.
type Snapshot struct {
	SessionID   string
	StartedAt   time.Time
	DurationSec float64
	VideoFile   string
	Show        *timing.Show
	Episode     *timing.Episode
	Events      []Event
	Completion  Completion
}

// Summary reports the outcome of a run.
type Summary struct {
	SessionID   string       `json:"session_id"`
	Completion  Completion   `json:"completion"`
	Phase       Phase        `json:"phase"`
	RawPath     string       `json:"raw_path,omitempty"`
	VideoPath   string       `json:"video_path,omitempty"`
	RecordPath  string       `json:"record_path,omitempty"`
	DurationSec float64      `json:"duration_sec"`
	Events      int          `json:"events"`
	Stats       timing.Stats `json:"stats"`
}

// Status is a point-in-time view safe to read from any goroutine.
type Status struct {
	SessionID  string      `json:"session_id"`
	Phase      Phase       `json:"phase"`
	Events     int         `json:"events"`
	Completion *Completion `json:"completion,omitempty"`
}

// RunnerOptions wires a runner's collaborators. Capture and Exporter are
// required; Transcoder and Observer are optional.
type RunnerOptions struct {
	SessionID  string
	Capture    Capture
	Transcoder Transcoder
	Exporter   Exporter
	Observer   Observer
	Clock      Clock
	Logger     *slog.Logger
	// StartData is attached to the recording_start event.
	StartData map[string]any
	QueueSize int
}

type item struct {
	event   Incoming
	console *ConsoleLine
}

// Runner is the single consumer of a session's events. Producers call
// Submit or SubmitConsole from any goroutine; Run processes items one at a
// time and sequences stop, transcode, and export when the session ends.
type Runner struct {
	opts    RunnerOptions
	logger  *slog.Logger
	clock   Clock
	machine *Machine
	bridge  Bridge

	queue   chan item
	signals chan Signal
	done    chan struct{}

	mu     sync.RWMutex
	status Status
}

// NewRunner constructs a runner around a fresh machine.
func NewRunner(cfg Config, opts RunnerOptions) *Runner {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	r := &Runner{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "runner"),
		clock:   opts.Clock,
		queue:   make(chan item, opts.QueueSize),
		signals: make(chan Signal, 4),
		done:    make(chan struct{}),
		status:  Status{SessionID: opts.SessionID, Phase: PhaseWaiting},
	}
	r.machine = NewMachine(cfg, opts.Clock, r.raise, opts.Logger)
	return r
}

func (r *Runner) raise(sig Signal) {
	select {
	case r.signals <- sig:
	default:
	}
}

// Submit queues an event for processing. At is stamped on receipt when unset.
func (r *Runner) Submit(ctx context.Context, in Incoming) error {
	if in.At.IsZero() {
		in.At = r.clock.Now()
	}
	return r.enqueue(ctx, item{event: in})
}

// SubmitConsole queues a page console line for translation and processing.
func (r *Runner) SubmitConsole(ctx context.Context, line ConsoleLine) error {
	return r.enqueue(ctx, item{event: Incoming{At: r.clock.Now()}, console: &line})
}

func (r *Runner) enqueue(ctx context.Context, it item) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	select {
	case r.queue <- it:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the latest session status.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := r.status
	if st.Completion != nil {
		c := *st.Completion
		st.Completion = &c
	}
	return st
}

// Done is closed once the runner stops consuming events.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Run starts capture, consumes events until the session completes or ctx is
// cancelled, then stops capture, transcodes, and exports. Teardown runs even
// after cancellation so partial timing data is kept.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	ctx = services.WithSessionID(ctx, r.opts.SessionID)
	logger := logging.WithContext(ctx, r.logger)

	stream, err := r.opts.Capture.Start(ctx)
	if err != nil {
		close(r.done)
		return Summary{SessionID: r.opts.SessionID}, services.Wrap(services.ErrExternalTool, "session", "start capture", "", err)
	}
	r.machine.Start(r.clock.Now())
	startData, _ := json.Marshal(r.opts.StartData)
	r.process(item{event: Incoming{Kind: KindRecordingStart, At: r.clock.Now(), Data: startData}})
	logger.Info("capture started")

	r.consume(ctx, logger)
	close(r.done)

	completion, _ := r.machine.Completion()
	teardown := context.WithoutCancel(ctx)
	return r.teardown(teardown, logger, stream, completion)
}

func (r *Runner) consume(ctx context.Context, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			if c := r.machine.Cancel(); c != nil {
				logger.Info("session cancelled", logging.Float64("offset_sec", c.OffsetSec))
				r.publish()
			}
			return
		case it := <-r.queue:
			r.process(it)
		case sig := <-r.signals:
			switch sig {
			case SignalStop:
				return
			case SignalTimeout, SignalStall:
				if c := r.machine.Expire(sig); c != nil {
					r.publish()
					return
				}
			}
		}
	}
}

func (r *Runner) process(it item) {
	in := it.event
	if it.console != nil {
		translated, ok := r.bridge.Translate(*it.console)
		if !ok {
			return
		}
		translated.At = in.At
		in = translated
	}
	res := r.machine.HandleEvent(in)
	if r.opts.Observer != nil {
		r.opts.Observer.EventHandled(res)
	}
	r.publish()
}

func (r *Runner) publish() {
	st := Status{SessionID: r.opts.SessionID, Phase: r.machine.Phase(), Events: r.machine.EventCount()}
	if c, ok := r.machine.Completion(); ok {
		st.Completion = &c
	}
	r.mu.Lock()
	r.status = st
	r.mu.Unlock()
}

func (r *Runner) teardown(ctx context.Context, logger *slog.Logger, stream Stream, completion Completion) (Summary, error) {
	sum := Summary{SessionID: r.opts.SessionID, Completion: completion}
	var errs []error

	rawPath, err := stream.Stop(ctx)
	if err != nil {
		logging.ErrorWithContext(logger, "capture stop failed", "capture_stop_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the capture process output"),
		)
		errs = append(errs, services.Wrap(services.ErrExternalTool, "session", "stop capture", "", err))
	}
	stopData, _ := json.Marshal(map[string]any{"reason": completion.Reason, "kind": completion.Kind, "file": rawPath})
	sum.DurationSec = r.machine.Stop(r.clock.Now(), stopData)
	r.publish()
	sum.RawPath = rawPath

	videoPath := rawPath
	if rawPath != "" && r.opts.Transcoder != nil && completion.Reason != ReasonCancelled {
		out, err := r.opts.Transcoder.Transcode(ctx, rawPath)
		if err != nil {
			logging.ErrorWithContext(logger, "post-capture transcode failed; record references raw capture", "transcode_failed",
				logging.Error(err),
				logging.String("raw_path", rawPath),
				logging.String(logging.FieldErrorHint, "re-run ffmpeg manually on the raw capture"),
			)
			errs = append(errs, err)
		} else {
			videoPath = out
		}
	}
	sum.VideoPath = videoPath

	snap := Snapshot{
		SessionID:   r.opts.SessionID,
		StartedAt:   r.machine.StartedAt(),
		DurationSec: sum.DurationSec,
		Show:        r.machine.Show(),
		Episode:     r.machine.Episode(),
		Events:      r.machine.Events(),
		Completion:  completion,
	}
	if videoPath != "" {
		snap.VideoFile = filepath.Base(videoPath)
	}
	recordPath, err := r.opts.Exporter.Export(ctx, snap)
	if err != nil {
		logging.ErrorWithContext(logger, "session export failed", "export_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output directory permissions"),
		)
		errs = append(errs, fmt.Errorf("export session: %w", err))
	}
	sum.RecordPath = recordPath
	sum.Phase = r.machine.Phase()
	sum.Events = r.machine.EventCount()
	sum.Stats = r.machine.Episode().Stats()

	logger.Info("session finished",
		logging.String("reason", string(completion.Reason)),
		logging.Float64("duration_sec", sum.DurationSec),
		logging.Int("events", sum.Events),
		logging.Int("dialogues_with_words", sum.Stats.DialoguesWithWords),
		logging.Int("words", sum.Stats.Words),
		logging.String("record", recordPath),
	)
	if r.opts.Observer != nil {
		r.opts.Observer.SessionEnded(sum)
	}
	return sum, errors.Join(errs...)
}
