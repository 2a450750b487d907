package clip

import (
	"strings"

	"stagecap/internal/textutil"
	"stagecap/internal/timing"
)

// Options tune boundary resolution.
type Options struct {
	// EncoderLatency is added to every anchored scene start.
	EncoderLatency float64
	// Padding widens search matches on both sides.
	Padding float64
	// SourceDuration clamps cut ends when positive.
	SourceDuration float64
	// SkipMediaCues ignores media control lines when anchoring.
	SkipMediaCues bool
}

// Cut is one resolved interval.
type Cut struct {
	StartSec float64
	EndSec   float64
	Label    string
	// Name is the output file stem after the episode prefix.
	Name string
	// Scene is the first scene number covered, zero for time and search cuts.
	Scene int
}

// DurationSec returns the cut length.
func (c Cut) DurationSec() float64 { return c.EndSec - c.StartSec }

// Match is one search hit.
type Match struct {
	Scene    int
	Line     int
	Actor    string
	Text     string
	StartSec float64
	Cut      Cut
}

// Resolver computes cut points against one episode. It never mutates the
// episode, so one Resolver may serve concurrent callers.
type Resolver struct {
	episode *timing.Episode
	opts    Options
}

// NewResolver constructs a resolver.
func NewResolver(episode *timing.Episode, opts Options) *Resolver {
	return &Resolver{episode: episode, opts: opts}
}

// Resolve validates sel and returns its cuts. Scene numbers are checked
// against the whole episode before any cut is computed.
func (r *Resolver) Resolve(sel Selection) ([]Cut, error) {
	if r.episode == nil || len(r.episode.Scenes) == 0 {
		if sel.Kind != KindTime {
			return nil, invalid("episode has no scenes")
		}
	}
	switch sel.Kind {
	case KindScene:
		if len(sel.Scenes) != 1 {
			return nil, invalid("scene selection needs exactly one scene")
		}
		if err := r.validateScenes(sel.Scenes); err != nil {
			return nil, err
		}
		c, err := r.sceneCut(sel.Scenes[0], sel.Scenes[0])
		if err != nil {
			return nil, err
		}
		return []Cut{c}, nil
	case KindRange:
		if len(sel.Scenes) != 2 {
			return nil, invalid("range selection needs from and to")
		}
		from, to := sel.Scenes[0], sel.Scenes[1]
		if from > to {
			return nil, invalid("scene range %d-%d is reversed", from, to)
		}
		if err := r.validateScenes(sel.Scenes); err != nil {
			return nil, err
		}
		c, err := r.sceneCut(from, to)
		if err != nil {
			return nil, err
		}
		return []Cut{c}, nil
	case KindSet:
		if len(sel.Scenes) == 0 {
			return nil, invalid("scene set is empty")
		}
		seen := make(map[int]bool, len(sel.Scenes))
		for _, n := range sel.Scenes {
			if seen[n] {
				return nil, invalid("scene %d listed twice", n)
			}
			seen[n] = true
		}
		if err := r.validateScenes(sel.Scenes); err != nil {
			return nil, err
		}
		cuts := make([]Cut, 0, len(sel.Scenes))
		for _, n := range sel.Scenes {
			c, err := r.sceneCut(n, n)
			if err != nil {
				return nil, err
			}
			cuts = append(cuts, c)
		}
		return cuts, nil
	case KindTime:
		c := Cut{
			StartSec: sel.StartSec,
			EndSec:   sel.EndSec,
			Name:     timeName(sel.StartSec) + "-" + timeName(sel.EndSec),
			Label:    FormatTime(sel.StartSec) + "-" + FormatTime(sel.EndSec),
		}
		if sel.EndSec <= sel.StartSec {
			return nil, invalid("end %s must be after start %s", FormatTime(sel.EndSec), FormatTime(sel.StartSec))
		}
		c, err := r.clamp(c)
		if err != nil {
			return nil, err
		}
		return []Cut{c}, nil
	case KindSearch:
		matches, err := r.Search(sel.Query)
		if err != nil {
			return nil, err
		}
		cuts := make([]Cut, len(matches))
		for i, m := range matches {
			cuts[i] = m.Cut
		}
		return cuts, nil
	default:
		return nil, invalid("unknown selection %q", sel.Kind)
	}
}

func (r *Resolver) validateScenes(scenes []int) error {
	maxNumber := r.episode.MaxSceneNumber()
	if maxNumber == 0 {
		maxNumber = len(r.episode.Scenes)
	}
	for _, n := range scenes {
		if n < 1 || n > maxNumber {
			return invalid("scene %d out of range (1-%d)", n, maxNumber)
		}
		if _, _, ok := r.episode.FindScene(n); !ok {
			return invalid("scene %d not found", n)
		}
	}
	return nil
}

func (r *Resolver) sceneCut(from, to int) (Cut, error) {
	_, fromIdx, _ := r.episode.FindScene(from)
	last, _, _ := r.episode.FindScene(to)

	start := r.AnchorStart(fromIdx)
	end, ok := firstSet(last.EndSec, last.VisualEndSec)
	if !ok {
		return Cut{}, invalid("scene %d has no end time", to)
	}
	c := Cut{StartSec: start, EndSec: end, Scene: from}
	if from == to {
		c.Name = "scene" + itoa(from)
		c.Label = "scene " + itoa(from)
	} else {
		c.Name = "scene" + itoa(from) + "-" + itoa(to)
		c.Label = "scenes " + itoa(from) + "-" + itoa(to)
	}
	return r.clamp(c)
}

// VisualStart returns where the scene at index becomes visible: the
// previous scene's speech end, or the scene's own start for the first scene.
func (r *Resolver) VisualStart(index int) float64 {
	scene := &r.episode.Scenes[index]
	if index == 0 {
		v, _ := firstSet(scene.StartSec, scene.VisualStartSec)
		return v
	}
	prev := &r.episode.Scenes[index-1]
	v, _ := firstSet(prev.EndSec, prev.VisualEndSec, scene.VisualStartSec, scene.StartSec)
	return v
}

// AnchorStart returns the audio-anchored start of the scene at index: the
// earliest speech start at or after the visual start, else the visual start,
// plus encoder latency.
func (r *Resolver) AnchorStart(index int) float64 {
	visual := r.VisualStart(index)
	anchor, found := 0.0, false
	for i := range r.episode.Scenes[index].Dialogue {
		d := &r.episode.Scenes[index].Dialogue[i]
		if r.opts.SkipMediaCues && (d.IsMediaCue || timing.IsMediaActor(d.Actor)) {
			continue
		}
		at, ok := d.SpeechStart()
		if !ok || at < visual {
			continue
		}
		if !found || at < anchor {
			anchor, found = at, true
		}
	}
	if !found {
		anchor = visual
	}
	return anchor + r.opts.EncoderLatency
}

// Search returns every timed dialogue line whose text contains query,
// ignoring case, in episode order.
func (r *Resolver) Search(query string) ([]Match, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, invalid("empty search query")
	}
	token := textutil.ClipToken(query, 20)
	var matches []Match
	for si := range r.episode.Scenes {
		scene := &r.episode.Scenes[si]
		for di := range scene.Dialogue {
			d := &scene.Dialogue[di]
			if d.Line == "" || !strings.Contains(strings.ToLower(d.Line), needle) {
				continue
			}
			start, okStart := d.StartSec.Get()
			end, okEnd := d.EndSec.Get()
			if !okStart || !okEnd {
				continue
			}
			number := scene.Number
			if number == 0 {
				number = si + 1
			}
			c := Cut{
				StartSec: start - r.opts.Padding,
				EndSec:   end + r.opts.Padding,
				Name:     "search_" + token + "_" + itoa(len(matches)+1),
				Label:    "scene " + itoa(number) + " " + d.Actor,
			}
			c, err := r.clamp(c)
			if err != nil {
				continue
			}
			matches = append(matches, Match{
				Scene:    number,
				Line:     di + 1,
				Actor:    d.Actor,
				Text:     d.Line,
				StartSec: start,
				Cut:      c,
			})
		}
	}
	return matches, nil
}

func (r *Resolver) clamp(c Cut) (Cut, error) {
	if c.StartSec < 0 {
		c.StartSec = 0
	}
	if d := r.opts.SourceDuration; d > 0 && c.EndSec > d {
		c.EndSec = d
	}
	if c.EndSec <= c.StartSec {
		return Cut{}, invalid("%s is empty after clamping (%.3f-%.3f)", c.Label, c.StartSec, c.EndSec)
	}
	return c, nil
}

func firstSet(marks ...timing.Mark) (float64, bool) {
	for _, m := range marks {
		if v, ok := m.Get(); ok {
			return v, true
		}
	}
	return 0, false
}

// timeName renders seconds as "1m05s" for file names.
func timeName(sec float64) string {
	return strings.Replace(FormatTime(sec), ":", "m", 1) + "s"
}
