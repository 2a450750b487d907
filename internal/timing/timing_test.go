package timing_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"stagecap/internal/services"
	"stagecap/internal/timing"
	"stagecap/internal/words"
)

func sampleEpisode() *timing.Episode {
	return timing.NewEpisode(timing.EpisodeConfig{
		ID:    "42",
		Title: "Pilot",
		Scenes: []timing.SceneConfig{
			{Location: "bar", Dialogue: []timing.DialogueConfig{{Actor: "ann", Line: "Hello there"}, {Actor: "bob", Line: "Hi"}}},
			{Location: "street", In: "fade", Dialogue: []timing.DialogueConfig{{Actor: "roll-commercial"}, {Actor: "ann", Line: "Bye now"}}},
			{Location: "roof", Dialogue: []timing.DialogueConfig{{Actor: "bob", Line: "The end"}}},
		},
	})
}

func TestMarkDistinguishesZeroFromUnset(t *testing.T) {
	var m timing.Mark
	if m.IsSet() {
		t.Fatal("zero Mark must be unset")
	}
	if !m.SetIfUnset(0) {
		t.Fatal("expected first SetIfUnset to assign")
	}
	if v, ok := m.Get(); !ok || v != 0 {
		t.Fatalf("expected set 0, got %v %v", v, ok)
	}
	if m.SetIfUnset(5) {
		t.Fatal("SetIfUnset must not overwrite a set zero")
	}
}

func TestMarkJSON(t *testing.T) {
	type holder struct {
		A timing.Mark `json:"a,omitzero"`
		B timing.Mark `json:"b,omitzero"`
	}
	data, err := json.Marshal(holder{A: timing.At(0)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a":0}` {
		t.Fatalf("unexpected json: %s", data)
	}
	var decoded holder
	if err := json.Unmarshal([]byte(`{"a":1.5,"b":null}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := decoded.A.Get(); !ok || v != 1.5 {
		t.Fatalf("unexpected a: %v %v", v, ok)
	}
	if decoded.B.IsSet() {
		t.Fatal("null must decode as unset")
	}
	if err := json.Unmarshal([]byte(`{"a":"x"}`), &decoded); err == nil {
		t.Fatal("expected error for non-numeric timestamp")
	}
}

func TestTextAcceptsLoosePayloads(t *testing.T) {
	var cfg timing.EpisodeConfig
	if err := json.Unmarshal([]byte(`{"id":123,"image":false,"image_thumb":null,"name":"X"}`), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.ID != "123" || cfg.Image != "" || cfg.ImageThumb != "" {
		t.Fatalf("unexpected loose fields: %+v", cfg)
	}
}

func TestNewEpisodeDefaultsAndMediaCues(t *testing.T) {
	ep := sampleEpisode()
	if ep.Name != "Pilot" {
		t.Fatalf("expected name from title, got %q", ep.Name)
	}
	if len(ep.Scenes) != 3 || ep.Scenes[1].Number != 2 {
		t.Fatalf("unexpected scenes: %+v", ep.Scenes)
	}
	if ep.Scenes[1].TransitionIn != "fade" {
		t.Fatalf("expected transition from short key, got %q", ep.Scenes[1].TransitionIn)
	}
	if !ep.Scenes[1].Dialogue[0].IsMediaCue || ep.Scenes[1].Dialogue[1].IsMediaCue {
		t.Fatal("media cue flags wrong")
	}
	if ep.Scenes[0].Dialogue[1].Number != 2 {
		t.Fatalf("expected positional dialogue number, got %d", ep.Scenes[0].Dialogue[1].Number)
	}
}

func TestNewEpisodeIsIdempotent(t *testing.T) {
	if !reflect.DeepEqual(sampleEpisode(), sampleEpisode()) {
		t.Fatal("building from the same payload must yield identical episodes")
	}
}

func TestNewShowNameFallbacks(t *testing.T) {
	show := timing.NewShow(timing.ShowConfig{
		Name:   "Fallback",
		Actors: map[string]timing.EntityConfig{"ann": {}, "bob": {Title: "Bob B"}},
	})
	if show.Name != "Fallback" {
		t.Fatalf("unexpected show name %q", show.Name)
	}
	if show.Actors["ann"].Name != "ann" || show.Actors["bob"].Name != "Bob B" {
		t.Fatalf("unexpected actor names: %+v", show.Actors)
	}
}

func TestSwitchSceneKeepsVisualWindowsContiguous(t *testing.T) {
	ep := sampleEpisode()
	if err := ep.SwitchScene(-1, 0, 1.25); err != nil {
		t.Fatalf("SwitchScene: %v", err)
	}
	if err := ep.SwitchScene(0, 1, 7.5); err != nil {
		t.Fatalf("SwitchScene: %v", err)
	}
	end, _ := ep.Scenes[0].VisualEndSec.Get()
	start, _ := ep.Scenes[1].VisualStartSec.Get()
	if end != start || start != 7.5 {
		t.Fatalf("visual windows not contiguous: %v vs %v", end, start)
	}
	err := ep.SwitchScene(1, 9, 9)
	if !errors.Is(err, services.ErrAddressing) {
		t.Fatalf("expected addressing error, got %v", err)
	}
	if ep.Scenes[1].VisualEndSec.IsSet() {
		t.Fatal("unknown target must not mutate the current scene")
	}
}

func TestApplySpeechOnsetShiftsWords(t *testing.T) {
	ep := sampleEpisode()
	ws := []words.Word{{Text: "Hello", StartSec: 0.1, EndSec: 0.4}, {Text: "there", StartSec: 0.5, EndSec: 0.9}}
	if err := ep.ApplySpeechOnset(1, 1, 10, 1.2, ws); err != nil {
		t.Fatalf("ApplySpeechOnset: %v", err)
	}
	line := ep.Scenes[0].Dialogue[0]
	if line.StartSec.Or(-1) != 10 || line.EndSec.Or(-1) != 11.2 {
		t.Fatalf("unexpected line window: %v %v", line.StartSec, line.EndSec)
	}
	if line.Words[0].StartSec != 10.1 || line.Words[1].EndSec != 10.9 {
		t.Fatalf("words not shifted: %+v", line.Words)
	}
	if ep.Scenes[0].StartSec.Or(-1) != 10 || ep.Scenes[0].EndSec.Or(-1) != 11.2 {
		t.Fatalf("unexpected scene speech window: %v %v", ep.Scenes[0].StartSec, ep.Scenes[0].EndSec)
	}

	if err := ep.ApplySpeechOnset(1, 2, 12, 1, nil); err != nil {
		t.Fatalf("ApplySpeechOnset: %v", err)
	}
	if ep.Scenes[0].StartSec.Or(-1) != 10 || ep.Scenes[0].EndSec.Or(-1) != 13 {
		t.Fatalf("scene window should keep min start and extend end: %v %v", ep.Scenes[0].StartSec, ep.Scenes[0].EndSec)
	}

	if err := ep.ApplySpeechOnset(1, 3, 1, 1, nil); !errors.Is(err, services.ErrAddressing) {
		t.Fatalf("expected addressing error, got %v", err)
	}
	if err := ep.ApplySpeechOnset(4, 1, 1, 1, nil); !errors.Is(err, services.ErrAddressing) {
		t.Fatalf("expected addressing error, got %v", err)
	}
}

func TestSpeechOnsetAtZeroIsKept(t *testing.T) {
	ep := sampleEpisode()
	if err := ep.ApplySpeechOnset(1, 1, 0, 1, nil); err != nil {
		t.Fatalf("ApplySpeechOnset: %v", err)
	}
	if err := ep.ApplySpeechMarker(1, 1, 3); err != nil {
		t.Fatalf("ApplySpeechMarker: %v", err)
	}
	if v, _ := ep.Scenes[0].StartSec.Get(); v != 0 {
		t.Fatalf("a zero scene start must not be treated as unset, got %v", v)
	}
}

func TestSpeechMarkerNeverOverwritesOnsetTiming(t *testing.T) {
	ep := sampleEpisode()
	if err := ep.ApplySpeechOnset(1, 2, 5, 2, nil); err != nil {
		t.Fatalf("ApplySpeechOnset: %v", err)
	}
	if err := ep.ApplySpeechMarker(1, 2, 9); err != nil {
		t.Fatalf("ApplySpeechMarker: %v", err)
	}
	line := ep.Scenes[0].Dialogue[1]
	if line.StartSec.Or(-1) != 5 || line.EndSec.Or(-1) != 7 {
		t.Fatalf("marker overwrote onset timing: %v %v", line.StartSec, line.EndSec)
	}
}

func TestSpeechMarkerClosesPreviousLines(t *testing.T) {
	ep := sampleEpisode()
	for _, step := range []struct {
		scene, line int
		at          float64
	}{{1, 1, 2}, {1, 2, 4}, {2, 1, 6}} {
		if err := ep.ApplySpeechMarker(step.scene, step.line, step.at); err != nil {
			t.Fatalf("ApplySpeechMarker: %v", err)
		}
	}
	if ep.Scenes[0].Dialogue[0].EndSec.Or(-1) != 4 {
		t.Fatalf("previous line not closed: %v", ep.Scenes[0].Dialogue[0].EndSec)
	}
	if ep.Scenes[0].Dialogue[1].EndSec.Or(-1) != 6 {
		t.Fatalf("previous scene's last line not closed: %v", ep.Scenes[0].Dialogue[1].EndSec)
	}
	if ep.Scenes[0].EndSec.Or(-1) != 6 {
		t.Fatalf("previous scene end not closed: %v", ep.Scenes[0].EndSec)
	}
	if ep.Scenes[0].StartSec.Or(-1) != 2 || ep.Scenes[1].StartSec.Or(-1) != 6 {
		t.Fatalf("scene starts wrong: %v %v", ep.Scenes[0].StartSec, ep.Scenes[1].StartSec)
	}
	if err := ep.ApplySpeechMarker(3, 2, 1); !errors.Is(err, services.ErrAddressing) {
		t.Fatalf("expected addressing error, got %v", err)
	}
}

func TestLineAtCountsAcrossScenes(t *testing.T) {
	ep := sampleEpisode()
	cases := []struct{ pos, scene, line int }{{1, 1, 1}, {2, 1, 2}, {3, 2, 1}, {5, 3, 1}}
	for _, tc := range cases {
		s, l, ok := ep.LineAt(tc.pos)
		if !ok || s != tc.scene || l != tc.line {
			t.Fatalf("LineAt(%d) = %d,%d,%v want %d,%d", tc.pos, s, l, ok, tc.scene, tc.line)
		}
	}
	if _, _, ok := ep.LineAt(6); ok {
		t.Fatal("expected position past the end to fail")
	}
}

func TestFinalizeClosesOpenFields(t *testing.T) {
	ep := sampleEpisode()
	ep.Scenes[2].Dialogue[0].EndSec.Set(40)
	ep.Finalize(50)
	last := ep.Scenes[2]
	if last.VisualEndSec.Or(-1) != 50 || last.EndSec.Or(-1) != 50 {
		t.Fatalf("last scene not closed: %v %v", last.VisualEndSec, last.EndSec)
	}
	if last.Dialogue[0].EndSec.Or(-1) != 40 {
		t.Fatal("Finalize must not overwrite a set line end")
	}
	if ep.Scenes[0].VisualEndSec.IsSet() {
		t.Fatal("Finalize only touches the last scene")
	}
}

func TestStats(t *testing.T) {
	ep := sampleEpisode()
	_ = ep.ApplySpeechOnset(1, 1, 1, 1, []words.Word{{Text: "Hello"}, {Text: "there"}})
	_ = ep.ApplySpeechMarker(1, 2, 3)
	st := ep.Stats()
	want := timing.Stats{Scenes: 3, Dialogues: 5, TimedDialogues: 2, DialoguesWithWords: 1, Words: 2}
	if st != want {
		t.Fatalf("unexpected stats: %+v want %+v", st, want)
	}
}

func TestEpisodeJSONShape(t *testing.T) {
	ep := sampleEpisode()
	_ = ep.ApplySpeechOnset(1, 1, 0, 1, nil)
	data, err := json.Marshal(ep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"startSec":0`, `"isMediaCommand":true`, `"dialogue":[`, `"words":[]`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"visualStartSec"`) {
		t.Fatalf("unset visual start should be omitted: %s", s)
	}
}
