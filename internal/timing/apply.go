package timing

import (
	"fmt"

	"stagecap/internal/services"
	"stagecap/internal/words"
)

func addressingError(operation string, scene, line int) error {
	msg := fmt.Sprintf("scene %d", scene)
	if line > 0 {
		msg = fmt.Sprintf("scene %d dialogue %d", scene, line)
	}
	return services.Wrap(services.ErrAddressing, "timing", operation, msg, nil)
}

// SwitchScene closes the visual window of the scene at index from and opens
// the scene at index to, both at the same instant. Indexes are 0-based and a
// negative from means no scene was active. An unknown target mutates nothing.
func (e *Episode) SwitchScene(from, to int, at float64) error {
	if e == nil || to < 0 || to >= len(e.Scenes) {
		return addressingError("switch scene", to+1, 0)
	}
	if from >= 0 && from < len(e.Scenes) {
		e.Scenes[from].VisualEndSec.Set(at)
	}
	e.Scenes[to].VisualStartSec.Set(at)
	return nil
}

// ApplySpeechOnset writes fine-grained timing for one line. ws are
// line-relative and are shifted by at. The line's start and end are always
// written; this path takes precedence over speech markers. The scene's
// speech window is widened to cover the line.
func (e *Episode) ApplySpeechOnset(sceneOrdinal, lineOrdinal int, at, duration float64, ws []words.Word) error {
	scene, ok := e.Scene(sceneOrdinal)
	if !ok {
		return addressingError("speech onset", sceneOrdinal, lineOrdinal)
	}
	line, ok := scene.Line(lineOrdinal)
	if !ok {
		return addressingError("speech onset", sceneOrdinal, lineOrdinal)
	}

	line.StartSec.Set(at)
	line.EndSec.Set(at + duration)
	line.Words = words.Shift(ws, at)

	if start, set := scene.StartSec.Get(); !set || at < start {
		scene.StartSec.Set(at)
	}
	scene.EndSec.Set(at + duration)
	return nil
}

// ApplySpeechMarker is the coarse fallback when a line starts without
// per-character timing. It only fills unset fields: the line's start, the
// previous line's end (crossing into the previous scene for a scene's first
// line, closing that scene's speech window too), and the scene's start.
func (e *Episode) ApplySpeechMarker(sceneOrdinal, lineOrdinal int, at float64) error {
	scene, ok := e.Scene(sceneOrdinal)
	if !ok {
		return addressingError("speech marker", sceneOrdinal, lineOrdinal)
	}
	line, ok := scene.Line(lineOrdinal)
	if !ok {
		return addressingError("speech marker", sceneOrdinal, lineOrdinal)
	}

	line.StartSec.SetIfUnset(at)

	if lineOrdinal > 1 {
		prev, _ := scene.Line(lineOrdinal - 1)
		prev.EndSec.SetIfUnset(at)
	} else if prevScene, ok := e.Scene(sceneOrdinal - 1); ok && len(prevScene.Dialogue) > 0 {
		prevScene.Dialogue[len(prevScene.Dialogue)-1].EndSec.SetIfUnset(at)
		prevScene.EndSec.SetIfUnset(at)
	}

	if lineOrdinal == 1 {
		scene.StartSec.SetIfUnset(at)
	}
	return nil
}

// LineAt maps a 1-based position counted across all scenes in order to scene
// and dialogue ordinals.
func (e *Episode) LineAt(position int) (sceneOrdinal, lineOrdinal int, ok bool) {
	if e == nil || position < 1 {
		return 0, 0, false
	}
	remaining := position
	for i, s := range e.Scenes {
		if remaining <= len(s.Dialogue) {
			return i + 1, remaining, true
		}
		remaining -= len(s.Dialogue)
	}
	return 0, 0, false
}

// Finalize closes whatever is still open on the last scene when capture
// stops: its visual end, its last line's end, and its speech end.
func (e *Episode) Finalize(at float64) {
	if e == nil || len(e.Scenes) == 0 {
		return
	}
	last := &e.Scenes[len(e.Scenes)-1]
	last.VisualEndSec.SetIfUnset(at)
	if len(last.Dialogue) > 0 {
		last.Dialogue[len(last.Dialogue)-1].EndSec.SetIfUnset(at)
		last.EndSec.SetIfUnset(at)
	}
}

// Stats summarizes how much of the episode received timing.
type Stats struct {
	Scenes             int `json:"scenes"`
	Dialogues          int `json:"dialogues"`
	TimedDialogues     int `json:"timed_dialogues"`
	DialoguesWithWords int `json:"dialogues_with_words"`
	Words              int `json:"words"`
}

// Stats counts scenes, lines, timed lines, and words.
func (e *Episode) Stats() Stats {
	var st Stats
	if e == nil {
		return st
	}
	st.Scenes = len(e.Scenes)
	for _, s := range e.Scenes {
		for _, d := range s.Dialogue {
			st.Dialogues++
			if d.StartSec.IsSet() {
				st.TimedDialogues++
			}
			if len(d.Words) > 0 {
				st.DialoguesWithWords++
				st.Words += len(d.Words)
			}
		}
	}
	return st
}
