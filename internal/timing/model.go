// Package timing holds the accumulating timing record of a capture session:
// show metadata plus episode, scene, dialogue, and word timestamps.
//
// The record is mutated only by the session state machine while capture runs
// and is read-only once persisted. Timestamps are seconds since capture start.
package timing

import "stagecap/internal/words"

// Entity is a named show asset such as an actor or a location.
type Entity struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       Text   `json:"image"`
}

// Show is the show-level metadata kept once per record.
type Show struct {
	ID          Text              `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Creator     string            `json:"creator"`
	Image       Text              `json:"image"`
	Actors      map[string]Entity `json:"actors"`
	Locations   map[string]Entity `json:"locations"`
}

// Episode is the timing record root.
type Episode struct {
	ID         Text    `json:"id"`
	Name       string  `json:"name"`
	Image      Text    `json:"image,omitempty"`
	ImageThumb Text    `json:"image_thumb,omitempty"`
	Premise    string  `json:"premise"`
	Scenes     []Scene `json:"scenes"`
}

// Scene carries two windows: the speech window (StartSec/EndSec) spanned by
// spoken dialogue, and the visual window (VisualStartSec/VisualEndSec) driven
// by scene changes. Visual windows of consecutive scenes are contiguous.
type Scene struct {
	Number         int        `json:"number"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	TransitionIn   string     `json:"transitionIn,omitempty"`
	TransitionOut  string     `json:"transitionOut,omitempty"`
	StartSec       Mark       `json:"startSec,omitzero"`
	EndSec         Mark       `json:"endSec,omitzero"`
	VisualStartSec Mark       `json:"visualStartSec,omitzero"`
	VisualEndSec   Mark       `json:"visualEndSec,omitzero"`
	Dialogue       []Dialogue `json:"dialogue"`
}

// Dialogue is one scripted line. Media cues are control lines (commercial
// rolls, media clears) with no speech.
type Dialogue struct {
	Number     int          `json:"number"`
	Action     string       `json:"action,omitempty"`
	Line       string       `json:"line"`
	Actor      string       `json:"actor"`
	StartSec   Mark         `json:"startSec,omitzero"`
	EndSec     Mark         `json:"endSec,omitzero"`
	Words      []words.Word `json:"words"`
	IsMediaCue bool         `json:"isMediaCommand,omitempty"`
}

// SpeechStart returns the first word start, else StartSec.
func (d *Dialogue) SpeechStart() (float64, bool) {
	if len(d.Words) > 0 {
		return d.Words[0].StartSec, true
	}
	return d.StartSec.Get()
}

// Scene returns the scene with the given 1-based ordinal.
func (e *Episode) Scene(ordinal int) (*Scene, bool) {
	if e == nil || ordinal < 1 || ordinal > len(e.Scenes) {
		return nil, false
	}
	return &e.Scenes[ordinal-1], true
}

// Line returns the dialogue with the given 1-based ordinal.
func (s *Scene) Line(ordinal int) (*Dialogue, bool) {
	if s == nil || ordinal < 1 || ordinal > len(s.Dialogue) {
		return nil, false
	}
	return &s.Dialogue[ordinal-1], true
}

// FindScene returns the scene whose Number matches n, falling back to the
// ordinal position when no scene carries that number.
func (e *Episode) FindScene(n int) (*Scene, int, bool) {
	if e == nil {
		return nil, 0, false
	}
	for i := range e.Scenes {
		if e.Scenes[i].Number == n {
			return &e.Scenes[i], i, true
		}
	}
	if s, ok := e.Scene(n); ok {
		return s, n - 1, true
	}
	return nil, 0, false
}

// MaxSceneNumber returns the highest scene number in the episode.
func (e *Episode) MaxSceneNumber() int {
	maxNumber := 0
	if e == nil {
		return 0
	}
	for _, s := range e.Scenes {
		if s.Number > maxNumber {
			maxNumber = s.Number
		}
	}
	return maxNumber
}
