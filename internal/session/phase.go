package session

// Phase is the narrative phase of the playback being captured.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseIntro
	PhaseEpisode
	PhaseCredits
	PhasePostCredits
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseIntro:
		return "intro"
	case PhaseEpisode:
		return "episode"
	case PhaseCredits:
		return "credits"
	case PhasePostCredits:
		return "postcredits"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further event may change the phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseEnded
}

// MarshalText renders the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

var transitions = map[string]Phase{
	KindStartIntro:       PhaseIntro,
	KindEndIntro:         PhaseWaiting,
	KindStartEpisode:     PhaseEpisode,
	KindStartCredits:     PhaseCredits,
	KindEndCredits:       PhaseWaiting,
	KindStartPostCredits: PhasePostCredits,
}

// Reason explains why a session completed.
type Reason string

const (
	// ReasonNarrative is a clean end signalled by the playback itself.
	ReasonNarrative Reason = "narrative"
	// ReasonTimeout means the hard capture ceiling elapsed.
	ReasonTimeout Reason = "timeout"
	// ReasonStall means nothing followed the metadata load for the quiet period.
	ReasonStall Reason = "stall"
	// ReasonCancelled means the process was interrupted.
	ReasonCancelled Reason = "cancelled"
)

// Soft reports whether the reason is something other than a narrative end.
func (r Reason) Soft() bool {
	return r != ReasonNarrative
}

// Completion records how and when a session ended.
type Completion struct {
	Reason    Reason  `json:"reason"`
	Kind      string  `json:"kind,omitempty"`
	OffsetSec float64 `json:"offset_sec"`
}
