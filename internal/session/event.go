package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"stagecap/internal/services"
	"stagecap/internal/timing"
	"stagecap/internal/words"
)

// Event kinds emitted by page instrumentation and by the recorder itself.
const (
	KindLoadShow         = "load_show"
	KindLoadEpisode      = "load_episode"
	KindSceneLoaded      = "scene_loaded"
	KindSpeakStart       = "speak_start"
	KindDialogueStart    = "dialogue_start"
	KindStartIntro       = "start_intro"
	KindEndIntro         = "end_intro"
	KindStartEpisode     = "start_ep"
	KindStartCredits     = "start_credits"
	KindEndCredits       = "end_credits"
	KindStartPostCredits = "start_postcredits"
	KindEndEpisode       = "end_ep"
	KindEndPostCredits   = "end_postcredits"
	KindEpisodeEnd       = "episode_end"
	KindNavigation       = "navigation"
	KindRecordingStart   = "recording_start"
	KindRecordingStop    = "recording_stop"
)

var completionKinds = map[string]struct{}{
	KindEndEpisode:     {},
	KindEndCredits:     {},
	KindEndPostCredits: {},
	KindEpisodeEnd:     {},
	KindNavigation:     {},
}

// IsCompletionKind reports whether kind always ends the narrative.
func IsCompletionKind(kind string) bool {
	_, ok := completionKinds[kind]
	return ok
}

func isMetadataKind(kind string) bool {
	return kind == KindLoadShow || kind == KindLoadEpisode
}

func isBookkeepingKind(kind string) bool {
	return kind == KindRecordingStart || kind == KindRecordingStop
}

// Event is one entry of the append-only session log.
type Event struct {
	Kind      string          `json:"kind"`
	Time      time.Time       `json:"time"`
	OffsetSec float64         `json:"offset_sec"`
	Frame     int             `json:"frame"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Incoming is an event as submitted to the machine. At defaults to the
// machine clock; Offset, when set, is used verbatim instead of being derived
// from At.
type Incoming struct {
	Kind   string
	At     time.Time
	Data   json.RawMessage
	Offset timing.Mark
}

// Payload is the closed set of typed event variants.
type Payload interface {
	payload()
}

// ShowLoaded carries show metadata.
type ShowLoaded struct {
	Config timing.ShowConfig
}

// EpisodeLoaded carries the episode structure.
type EpisodeLoaded struct {
	Config timing.EpisodeConfig
}

// SceneLoaded marks an on-screen scene change. Index is 0-based.
type SceneLoaded struct {
	Index int
}

// SpeechOnset carries per-character timing for one line. Scene and Line
// are 1-based ordinals.
type SpeechOnset struct {
	Scene    int
	Line     int
	Duration float64
	Chars    []words.CharTiming
}

// SpeechMarker marks a line starting without fine timing. Either Scene and
// Line are set, or Position counts lines across the whole episode.
type SpeechMarker struct {
	Scene    int
	Line     int
	Position int
}

// PhaseChange moves the narrative phase.
type PhaseChange struct {
	To Phase
}

// CompletionSignal is a completion event with no further payload.
type CompletionSignal struct{}

// Generic is any other kind; it is logged but changes nothing.
type Generic struct{}

func (ShowLoaded) payload()       {}
func (EpisodeLoaded) payload()    {}
func (SceneLoaded) payload()      {}
func (SpeechOnset) payload()      {}
func (SpeechMarker) payload()     {}
func (PhaseChange) payload()      {}
func (CompletionSignal) payload() {}
func (Generic) payload()          {}

type speakPayload struct {
	SceneNumber int     `json:"sceneNumber"`
	Number      int     `json:"number"`
	Duration    float64 `json:"duration"`
	TimingData  *struct {
		Timestamps []words.CharTiming `json:"timestamps"`
		Duration   float64            `json:"duration"`
	} `json:"timingData"`
}

type markerPayload struct {
	SceneNumber   int  `json:"sceneNumber"`
	Number        int  `json:"number"`
	SceneIndex    *int `json:"sceneIndex"`
	DialogueIndex *int `json:"dialogueIndex"`
	GlobalIndex   int  `json:"globalIndex"`
}

type scenePayload struct {
	SceneIndex *int `json:"sceneIndex"`
}

func hasData(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func malformed(kind string, err error) error {
	return services.Wrap(services.ErrMalformedEvent, "session", "decode", kind, err)
}

// Decode maps an event kind and its raw data to a typed payload. Kinds that
// need data report ErrMalformedEvent when it is missing or has the wrong shape.
func Decode(kind string, data json.RawMessage) (Payload, error) {
	switch kind {
	case KindLoadShow:
		if !hasData(data) {
			return nil, malformed(kind, fmt.Errorf("missing show data"))
		}
		var cfg timing.ShowConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, malformed(kind, err)
		}
		return ShowLoaded{Config: cfg}, nil
	case KindLoadEpisode:
		if !hasData(data) {
			return nil, malformed(kind, fmt.Errorf("missing episode data"))
		}
		var cfg timing.EpisodeConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, malformed(kind, err)
		}
		return EpisodeLoaded{Config: cfg}, nil
	case KindSceneLoaded:
		var p scenePayload
		if hasData(data) {
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, malformed(kind, err)
			}
		}
		if p.SceneIndex == nil {
			return nil, malformed(kind, fmt.Errorf("missing sceneIndex"))
		}
		return SceneLoaded{Index: *p.SceneIndex}, nil
	case KindSpeakStart:
		if !hasData(data) {
			return nil, malformed(kind, fmt.Errorf("missing speech data"))
		}
		var p speakPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, malformed(kind, err)
		}
		scene, line := orOne(p.SceneNumber), orOne(p.Number)
		if p.TimingData == nil {
			return SpeechMarker{Scene: scene, Line: line}, nil
		}
		duration := p.Duration
		if duration == 0 {
			duration = p.TimingData.Duration
		}
		return SpeechOnset{Scene: scene, Line: line, Duration: duration, Chars: p.TimingData.Timestamps}, nil
	case KindDialogueStart:
		var p markerPayload
		if hasData(data) {
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, malformed(kind, err)
			}
		}
		switch {
		case p.GlobalIndex > 0:
			return SpeechMarker{Position: p.GlobalIndex}, nil
		case p.SceneNumber > 0 || p.Number > 0:
			return SpeechMarker{Scene: orOne(p.SceneNumber), Line: orOne(p.Number)}, nil
		case p.SceneIndex != nil && p.DialogueIndex != nil:
			return SpeechMarker{Scene: *p.SceneIndex + 1, Line: *p.DialogueIndex + 1}, nil
		default:
			return nil, malformed(kind, fmt.Errorf("missing dialogue address"))
		}
	}
	if to, ok := transitions[kind]; ok {
		return PhaseChange{To: to}, nil
	}
	if IsCompletionKind(kind) {
		return CompletionSignal{}, nil
	}
	return Generic{}, nil
}

func orOne(n int) int {
	if n > 0 {
		return n
	}
	return 1
}
