package clip_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stagecap/internal/clip"
	"stagecap/internal/ffmpeg"
	"stagecap/internal/logging"
	"stagecap/internal/services"
	"stagecap/internal/timing"
	"stagecap/internal/words"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func testEpisode() *timing.Episode {
	return &timing.Episode{
		Name: "Pilot",
		Scenes: []timing.Scene{
			{
				Number:   1,
				Location: "bar",
				StartSec: timing.At(1.0),
				EndSec:   timing.At(10.0),
				Dialogue: []timing.Dialogue{
					{Number: 1, Actor: "ada", Line: "Hello ElizaOS", StartSec: timing.At(1.0), EndSec: timing.At(3.0),
						Words: []words.Word{{Text: "Hello", StartSec: 1.2, EndSec: 1.6}}},
				},
			},
			{
				Number:   2,
				Location: "rooftop",
				StartSec: timing.At(10.1),
				EndSec:   timing.At(20.0),
				Dialogue: []timing.Dialogue{
					{Number: 1, Actor: "roll-media", StartSec: timing.At(10.1), IsMediaCue: true},
					{Number: 2, Actor: "bob", Line: "Late again", StartSec: timing.At(10.3),
						Words: []words.Word{{Text: "Late", StartSec: 10.4, EndSec: 10.8}}},
					{Number: 3, Actor: "ada", Line: "elizaos never sleeps"},
				},
			},
			{Number: 3, Location: "street", Description: "A quiet street at night.", StartSec: timing.At(25), EndSec: timing.At(30)},
			{
				Number:   4,
				Location: "lab",
				StartSec: timing.At(30),
				EndSec:   timing.At(40),
				Dialogue: []timing.Dialogue{
					{Number: 1, Actor: "bob", Line: "We need ElizaOS here", StartSec: timing.At(30), EndSec: timing.At(33)},
				},
			},
		},
	}
}

func resolver(opts clip.Options) *clip.Resolver {
	if opts.EncoderLatency == 0 {
		opts.EncoderLatency = 0.17
	}
	opts.SkipMediaCues = true
	return clip.NewResolver(testEpisode(), opts)
}

func TestSceneStartAnchorsOnFirstWord(t *testing.T) {
	cuts, err := resolver(clip.Options{}).Resolve(clip.SceneSelection(2))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cuts) != 1 {
		t.Fatalf("expected one cut, got %d", len(cuts))
	}
	c := cuts[0]
	if !near(c.StartSec, 10.57) || c.EndSec != 20.0 {
		t.Fatalf("scene 2 cut = %.3f-%.3f, want 10.570-20.000", c.StartSec, c.EndSec)
	}
	if clip.OutputName("ep", c) != "ep_scene2.mp4" {
		t.Fatalf("unexpected name %q", clip.OutputName("ep", c))
	}
}

func TestFirstSceneAndSilentScene(t *testing.T) {
	r := resolver(clip.Options{})
	if got := r.AnchorStart(0); !near(got, 1.37) {
		t.Fatalf("first scene anchor = %v, want 1.37", got)
	}
	if got := r.AnchorStart(2); !near(got, 20.17) {
		t.Fatalf("silent scene anchor = %v, want previous end plus latency", got)
	}
}

func TestMediaCuesAnchorWhenNotSkipped(t *testing.T) {
	r := clip.NewResolver(testEpisode(), clip.Options{EncoderLatency: 0.17})
	if got := r.AnchorStart(1); !near(got, 10.27) {
		t.Fatalf("anchor with media cues = %v, want 10.27", got)
	}
}

func TestRangeIsOneContiguousCut(t *testing.T) {
	cuts, err := resolver(clip.Options{}).Resolve(clip.RangeSelection(2, 3))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cuts) != 1 || !near(cuts[0].StartSec, 10.57) || cuts[0].EndSec != 30 {
		t.Fatalf("unexpected range cut: %+v", cuts)
	}
	if cuts[0].Name != "scene2-3" {
		t.Fatalf("unexpected range name %q", cuts[0].Name)
	}
}

func TestSetResolvesEachScene(t *testing.T) {
	cuts, err := resolver(clip.Options{}).Resolve(clip.SetSelection(1, 4))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cuts) != 2 || cuts[0].Name != "scene1" || cuts[1].Name != "scene4" {
		t.Fatalf("unexpected set cuts: %+v", cuts)
	}
	if !near(cuts[1].StartSec, 30.17) {
		t.Fatalf("scene 4 start = %v", cuts[1].StartSec)
	}
}

func TestInvalidSelectionsAreRejected(t *testing.T) {
	r := resolver(clip.Options{})
	tests := []struct {
		name string
		sel  clip.Selection
	}{
		{"reversed range", clip.RangeSelection(5, 3)},
		{"out of range", clip.SceneSelection(99)},
		{"zero", clip.SceneSelection(0)},
		{"set with one bad scene", clip.SetSelection(1, 99)},
		{"set with repeated scene", clip.SetSelection(1, 2, 1)},
		{"range end missing", clip.RangeSelection(2, 7)},
		{"empty time", clip.TimeSelection(5, 5)},
		{"empty query", clip.SearchSelection("  ")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.Resolve(tc.sel); !errors.Is(err, services.ErrInvalidSelection) {
				t.Fatalf("expected invalid selection, got %v", err)
			}
		})
	}
}

func TestTimeRangePassesThrough(t *testing.T) {
	cuts, err := resolver(clip.Options{}).Resolve(clip.TimeSelection(65, 130.5))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cuts[0].StartSec != 65 || cuts[0].EndSec != 130.5 {
		t.Fatalf("time range must not be anchored: %+v", cuts[0])
	}
	if got := clip.OutputName("ep", cuts[0]); got != "ep_1m05s-2m10s.mp4" {
		t.Fatalf("unexpected time name %q", got)
	}
}

func TestSearchPadsAndClamps(t *testing.T) {
	r := resolver(clip.Options{Padding: 2})
	matches, err := r.Search("elizaos")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("untimed lines must be skipped, got %d matches", len(matches))
	}
	if matches[0].Cut.StartSec != 0 || matches[0].Cut.EndSec != 5 {
		t.Fatalf("first match should clamp to 0: %+v", matches[0].Cut)
	}
	if matches[1].Cut.StartSec != 28 || matches[1].Cut.EndSec != 35 || matches[1].Scene != 4 {
		t.Fatalf("unexpected second match: %+v", matches[1])
	}
	if got := clip.OutputName("ep", matches[1].Cut); got != "ep_search_elizaos_2.mp4" {
		t.Fatalf("unexpected search name %q", got)
	}

	clamped, err := resolver(clip.Options{Padding: 2, SourceDuration: 34}).Resolve(clip.SearchSelection("ElizaOS"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if clamped[1].EndSec != 34 {
		t.Fatalf("end should clamp to source duration, got %v", clamped[1].EndSec)
	}
}

func TestParseTime(t *testing.T) {
	good := map[string]float64{
		"1:30":    90,
		"0:05.25": 5.25,
		"12.5":    12.5,
		"10:00":   600,
	}
	for in, want := range good {
		got, err := clip.ParseTime(in)
		if err != nil || got != want {
			t.Fatalf("ParseTime(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "abc", "1:75", "-3", "x:10", "1:-5", "-0:30", "1:+5", "+12"} {
		if _, err := clip.ParseTime(in); !errors.Is(err, services.ErrInvalidSelection) {
			t.Fatalf("ParseTime(%q) should fail, got %v", in, err)
		}
	}
	if got := clip.FormatTime(125.9); got != "2:05" {
		t.Fatalf("FormatTime = %q", got)
	}
	scenes, err := clip.ParseSceneList("1, 3,7")
	if err != nil || len(scenes) != 3 || scenes[2] != 7 {
		t.Fatalf("ParseSceneList = %v %v", scenes, err)
	}
	if _, err := clip.ParseSceneList("1,3,1"); !errors.Is(err, services.ErrInvalidSelection) {
		t.Fatalf("repeated scene should fail, got %v", err)
	}
}

func TestOverview(t *testing.T) {
	rows := clip.Overview(testEpisode())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0].StartSec != 1 || rows[1].StartSec != 10 || rows[1].DurationSec != 10 {
		t.Fatalf("unexpected visual starts: %+v", rows[:2])
	}
	if rows[1].Preview != "bob: Late again" {
		t.Fatalf("preview should skip media cues: %q", rows[1].Preview)
	}
	if rows[2].Preview != "A quiet street at night." {
		t.Fatalf("silent scene preview should use the description: %q", rows[2].Preview)
	}

	ep := testEpisode()
	ep.Scenes[0].Dialogue[0].Line = strings.Repeat("word ", 40)
	long := clip.Overview(ep)[0].Preview
	if n := len([]rune(long)); n != 70 || !strings.HasSuffix(long, "…") {
		t.Fatalf("preview not truncated: %d %q", n, long)
	}
}

func TestWriteEDL(t *testing.T) {
	cuts := []clip.Cut{
		{StartSec: 10.57, EndSec: 20, Label: "scene 2"},
		{StartSec: 28, EndSec: 35, Label: "scene 4 bob"},
	}
	var buf bytes.Buffer
	if err := clip.WriteEDL(&buf, "Pilot", "/v/ep.mp4", 30, cuts); err != nil {
		t.Fatalf("WriteEDL: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"TITLE: Pilot\n",
		"001  AX       V     C        00:00:10:17 00:00:20:00 01:00:00:00 01:00:09:13\n",
		"002  AX       V     C        00:00:28:00 00:00:35:00 01:00:09:13 01:00:16:13\n",
		"* FROM CLIP NAME: ep.mp4\n",
		"* COMMENT: SCENE 4 BOB\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("EDL missing %q:\n%s", want, out)
		}
	}
}

type fakeCutter struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	failFor string
	specs   []ffmpeg.CutSpec
}

func (f *fakeCutter) Cut(_ context.Context, spec ffmpeg.CutSpec, _ func(ffmpeg.Progress)) error {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()
	if strings.Contains(spec.Dest, f.failFor) {
		return services.Wrap(services.ErrTranscodeFailure, "ffmpeg", "cut", "exit status 1", nil)
	}
	return nil
}

func TestExecutorContinuesPastFailures(t *testing.T) {
	r := resolver(clip.Options{})
	cuts, err := r.Resolve(clip.SetSelection(1, 2, 4))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	dir := t.TempDir()
	jobs := clip.Plan(dir, "ep", cuts)
	if jobs[1].Dest != filepath.Join(dir, "ep_scene2.mp4") {
		t.Fatalf("unexpected dest %q", jobs[1].Dest)
	}

	cutter := &fakeCutter{failFor: "scene2"}
	var hooked atomic.Int32
	exec := clip.NewExecutor(cutter, logging.NewNop(),
		clip.WithConcurrency(2),
		clip.WithOutcomeHook(func(clip.Outcome) { hooked.Add(1) }),
	)
	outcomes := exec.Run(context.Background(), "/v/ep.mp4", jobs)

	if len(outcomes) != 3 || clip.Failed(outcomes) != 1 {
		t.Fatalf("expected one failure among three, got %+v", outcomes)
	}
	if outcomes[1].Err == nil || outcomes[1].Status() != "failed" || outcomes[0].Status() != "ok" {
		t.Fatalf("outcomes out of order or misclassified: %+v", outcomes)
	}
	if len(cutter.specs) != 3 || hooked.Load() != 3 {
		t.Fatalf("siblings must keep running: specs=%d hooked=%d", len(cutter.specs), hooked.Load())
	}
	if cutter.peak > 2 {
		t.Fatalf("concurrency exceeded: %d", cutter.peak)
	}
}

func TestExecutorSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cutter := &fakeCutter{}
	outcomes := clip.NewExecutor(cutter, logging.NewNop()).Run(ctx, "/v/ep.mp4",
		[]clip.Job{{Cut: clip.Cut{StartSec: 0, EndSec: 1}, Dest: "/tmp/x.mp4"}})
	if !errors.Is(outcomes[0].Err, context.Canceled) || len(cutter.specs) != 0 {
		t.Fatalf("cancelled run should not cut: %+v", outcomes)
	}
}
