package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"stagecap/internal/logging"
	"stagecap/internal/session"
)

type fakeCapture struct {
	startErr error
	stream   *fakeStream
}

func (c *fakeCapture) Start(context.Context) (session.Stream, error) {
	if c.startErr != nil {
		return nil, c.startErr
	}
	return c.stream, nil
}

type fakeStream struct {
	mu      sync.Mutex
	stopped bool
	path    string
}

func (s *fakeStream) Stop(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return s.path, nil
}

type fakeTranscoder struct {
	stream *fakeStream
	err    error
	calls  int
	sawRaw bool
}

func (t *fakeTranscoder) Transcode(_ context.Context, raw string) (string, error) {
	t.calls++
	t.stream.mu.Lock()
	t.sawRaw = t.stream.stopped
	t.stream.mu.Unlock()
	if t.err != nil {
		return "", t.err
	}
	return strings.TrimSuffix(raw, ".webm") + ".mp4", nil
}

type fakeExporter struct {
	snap  session.Snapshot
	calls int
}

func (e *fakeExporter) Export(_ context.Context, snap session.Snapshot) (string, error) {
	e.calls++
	e.snap = snap
	return "/out/record.json", nil
}

type countingObserver struct {
	mu      sync.Mutex
	handled int
	ended   int
}

func (o *countingObserver) EventHandled(session.Result) {
	o.mu.Lock()
	o.handled++
	o.mu.Unlock()
}

func (o *countingObserver) SessionEnded(session.Summary) {
	o.mu.Lock()
	o.ended++
	o.mu.Unlock()
}

type harness struct {
	runner     *session.Runner
	clock      *fakeClock
	stream     *fakeStream
	transcoder *fakeTranscoder
	exporter   *fakeExporter
	observer   *countingObserver
}

func newHarness(t *testing.T, capture *fakeCapture) *harness {
	t.Helper()
	clock := newFakeClock()
	stream := &fakeStream{path: "/raw/session.webm"}
	if capture == nil {
		capture = &fakeCapture{}
	}
	capture.stream = stream
	h := &harness{
		clock:      clock,
		stream:     stream,
		transcoder: &fakeTranscoder{stream: stream},
		exporter:   &fakeExporter{},
		observer:   &countingObserver{},
	}
	h.runner = session.NewRunner(testConfig(), session.RunnerOptions{
		SessionID:  "s-1",
		Capture:    capture,
		Transcoder: h.transcoder,
		Exporter:   h.exporter,
		Observer:   h.observer,
		Clock:      clock,
		Logger:     logging.NewNop(),
		StartData:  map[string]any{"fps": 30},
	})
	return h
}

type runOutcome struct {
	sum session.Summary
	err error
}

func (h *harness) start(ctx context.Context) <-chan runOutcome {
	out := make(chan runOutcome, 1)
	go func() {
		sum, err := h.runner.Run(ctx)
		out <- runOutcome{sum, err}
	}()
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func awaitOutcome(t *testing.T, out <-chan runOutcome) runOutcome {
	t.Helper()
	select {
	case o := <-out:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not finish")
		return runOutcome{}
	}
}

func (h *harness) submit(t *testing.T, after time.Duration, kind, data string) {
	t.Helper()
	h.clock.Advance(after)
	in := session.Incoming{Kind: kind}
	if data != "" {
		in.Data = json.RawMessage(data)
	}
	if err := h.runner.Submit(context.Background(), in); err != nil {
		t.Fatalf("Submit(%s): %v", kind, err)
	}
}

func TestRunnerNarrativeSessionSequencesTeardown(t *testing.T) {
	h := newHarness(t, nil)
	out := h.start(context.Background())
	waitFor(t, "recording start", func() bool { return h.runner.Status().Events == 1 })

	h.submit(t, time.Second, session.KindLoadEpisode, episodeJSON)
	h.submit(t, time.Second, session.KindSceneLoaded, `{"sceneIndex":0}`)
	if err := h.runner.SubmitConsole(context.Background(), session.ConsoleLine{Text: "DIALOGUE START"}); err != nil {
		t.Fatalf("SubmitConsole: %v", err)
	}
	if err := h.runner.SubmitConsole(context.Background(), session.ConsoleLine{Text: "noise"}); err != nil {
		t.Fatalf("SubmitConsole: %v", err)
	}
	h.submit(t, time.Second, session.KindEndEpisode, "")

	waitFor(t, "completion", func() bool { return h.runner.Status().Completion != nil })
	if h.runner.Status().Phase != session.PhaseEnded {
		t.Fatalf("expected ended phase, got %s", h.runner.Status().Phase)
	}
	h.clock.Advance(3 * time.Second)

	o := awaitOutcome(t, out)
	if o.err != nil {
		t.Fatalf("Run: %v", o.err)
	}
	if o.sum.Completion.Reason != session.ReasonNarrative {
		t.Fatalf("unexpected completion: %+v", o.sum.Completion)
	}
	if !h.transcoder.sawRaw {
		t.Fatal("transcode must start after capture stopped")
	}
	if o.sum.VideoPath != "/raw/session.mp4" || h.exporter.snap.VideoFile != "session.mp4" {
		t.Fatalf("record must reference transcoded file: %+v / %q", o.sum, h.exporter.snap.VideoFile)
	}
	if o.sum.RecordPath != "/out/record.json" {
		t.Fatalf("unexpected record path %q", o.sum.RecordPath)
	}
	events := h.exporter.snap.Events
	if events[0].Kind != session.KindRecordingStart || events[len(events)-1].Kind != session.KindRecordingStop {
		t.Fatalf("bookkeeping events missing: first %s last %s", events[0].Kind, events[len(events)-1].Kind)
	}
	if o.sum.Stats.TimedDialogues != 1 {
		t.Fatalf("expected the console dialogue marker to time one line, got %+v", o.sum.Stats)
	}
	if h.observer.ended != 1 || h.observer.handled != 5 {
		t.Fatalf("observer saw handled=%d ended=%d", h.observer.handled, h.observer.ended)
	}
	if err := h.runner.Submit(context.Background(), session.Incoming{Kind: "late"}); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("submit after close = %v, want ErrClosed", err)
	}
}

func TestRunnerCancellationExportsPartialData(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	out := h.start(ctx)
	waitFor(t, "recording start", func() bool { return h.runner.Status().Events == 1 })
	h.submit(t, time.Second, session.KindLoadEpisode, episodeJSON)
	waitFor(t, "episode load", func() bool { return h.runner.Status().Events == 2 })
	cancel()

	o := awaitOutcome(t, out)
	if o.err != nil {
		t.Fatalf("Run: %v", o.err)
	}
	if o.sum.Completion.Reason != session.ReasonCancelled {
		t.Fatalf("expected cancelled, got %+v", o.sum.Completion)
	}
	if h.transcoder.calls != 0 {
		t.Fatal("cancelled sessions keep the raw capture")
	}
	if h.exporter.calls != 1 || h.exporter.snap.Episode == nil || h.exporter.snap.VideoFile != "session.webm" {
		t.Fatalf("expected partial export referencing raw file, got %+v", h.exporter.snap)
	}
}

func TestRunnerTimeoutStopsWithoutPostRoll(t *testing.T) {
	h := newHarness(t, nil)
	out := h.start(context.Background())
	waitFor(t, "recording start", func() bool { return h.runner.Status().Events == 1 })
	h.clock.Advance(time.Hour)

	o := awaitOutcome(t, out)
	if o.sum.Completion.Reason != session.ReasonTimeout {
		t.Fatalf("expected timeout, got %+v", o.sum.Completion)
	}
	if o.sum.DurationSec != 3600 {
		t.Fatalf("duration = %v, want 3600", o.sum.DurationSec)
	}
}

func TestRunnerTranscodeFailureKeepsRawReference(t *testing.T) {
	h := newHarness(t, nil)
	h.transcoder.err = errors.New("ffmpeg exploded")
	out := h.start(context.Background())
	waitFor(t, "recording start", func() bool { return h.runner.Status().Events == 1 })
	h.submit(t, time.Second, session.KindEpisodeEnd, "")
	waitFor(t, "completion", func() bool { return h.runner.Status().Completion != nil })
	h.clock.Advance(3 * time.Second)

	o := awaitOutcome(t, out)
	if o.err == nil || !strings.Contains(o.err.Error(), "ffmpeg exploded") {
		t.Fatalf("expected transcode error, got %v", o.err)
	}
	if h.exporter.calls != 1 || h.exporter.snap.VideoFile != "session.webm" {
		t.Fatalf("export must still run against raw file: %+v", h.exporter.snap)
	}
}

func TestRunnerCaptureStartFailure(t *testing.T) {
	h := newHarness(t, &fakeCapture{startErr: errors.New("no display")})
	_, err := h.runner.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("expected capture error, got %v", err)
	}
	if h.exporter.calls != 0 {
		t.Fatal("nothing to export without a capture")
	}
	select {
	case <-h.runner.Done():
	default:
		t.Fatal("runner must report done after a failed start")
	}
}

func TestObserversFanOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	obs := session.Observers{a, nil, b}
	obs.EventHandled(session.Result{})
	obs.SessionEnded(session.Summary{})
	if a.handled != 1 || b.handled != 1 || a.ended != 1 || b.ended != 1 {
		t.Fatalf("observers not all called: %+v %+v", a, b)
	}
}
