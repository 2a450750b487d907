package timing

import (
	"strings"

	"stagecap/internal/words"
)

// mediaActors are pseudo-actors whose lines drive playback rather than speech.
var mediaActors = map[string]struct{}{
	"aishaw":          {},
	"roll-commercial": {},
	"roll-media":      {},
	"clear-media":     {},
}

// IsMediaActor reports whether actor denotes a media control line.
func IsMediaActor(actor string) bool {
	_, ok := mediaActors[strings.ToLower(strings.TrimSpace(actor))]
	return ok
}

// EntityConfig is an actor or location as sent by the page.
type EntityConfig struct {
	Title       string `json:"title"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       Text   `json:"image"`
}

// ShowConfig is the show metadata payload as sent by the page.
type ShowConfig struct {
	ID          Text                    `json:"id"`
	Title       string                  `json:"title"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Creator     string                  `json:"creator"`
	Image       Text                    `json:"image"`
	Actors      map[string]EntityConfig `json:"actors"`
	Locations   map[string]EntityConfig `json:"locations"`
}

// DialogueConfig is one scripted line as sent by the page.
type DialogueConfig struct {
	Number int    `json:"number"`
	Action string `json:"action"`
	Line   string `json:"line"`
	Actor  string `json:"actor"`
}

// SceneConfig is one scene as sent by the page.
type SceneConfig struct {
	Number        int              `json:"number"`
	Description   string           `json:"description"`
	Location      string           `json:"location"`
	TransitionIn  string           `json:"transitionIn"`
	TransitionOut string           `json:"transitionOut"`
	In            string           `json:"in"`
	Out           string           `json:"out"`
	Dialogue      []DialogueConfig `json:"dialogue"`
}

// EpisodeConfig is the episode structure payload as sent by the page.
type EpisodeConfig struct {
	ID         Text          `json:"id"`
	Name       string        `json:"name"`
	Title      string        `json:"title"`
	Image      Text          `json:"image"`
	ImageThumb Text          `json:"image_thumb"`
	Premise    string        `json:"premise"`
	Scenes     []SceneConfig `json:"scenes"`
}

// NewShow materializes show metadata. Names fall back from title to name to
// the map key.
func NewShow(cfg ShowConfig) *Show {
	show := &Show{
		ID:          cfg.ID,
		Name:        firstNonEmpty(cfg.Title, cfg.Name),
		Description: cfg.Description,
		Creator:     cfg.Creator,
		Image:       cfg.Image,
		Actors:      make(map[string]Entity, len(cfg.Actors)),
		Locations:   make(map[string]Entity, len(cfg.Locations)),
	}
	for id, a := range cfg.Actors {
		show.Actors[id] = Entity{Name: firstNonEmpty(a.Title, a.Name, id), Description: a.Description, Image: a.Image}
	}
	for id, l := range cfg.Locations {
		show.Locations[id] = Entity{Name: firstNonEmpty(l.Title, l.Name, id), Description: l.Description, Image: l.Image}
	}
	return show
}

// NewEpisode materializes an empty-timed episode from its structure. Missing
// ordinals default to the 1-based position, and media actors are flagged.
// Building twice from the same payload yields identical episodes.
func NewEpisode(cfg EpisodeConfig) *Episode {
	ep := &Episode{
		ID:         cfg.ID,
		Name:       firstNonEmpty(cfg.Name, cfg.Title),
		Image:      cfg.Image,
		ImageThumb: cfg.ImageThumb,
		Premise:    cfg.Premise,
		Scenes:     make([]Scene, 0, len(cfg.Scenes)),
	}
	for si, sc := range cfg.Scenes {
		scene := Scene{
			Number:        orPosition(sc.Number, si),
			Description:   sc.Description,
			Location:      sc.Location,
			TransitionIn:  firstNonEmpty(sc.TransitionIn, sc.In),
			TransitionOut: firstNonEmpty(sc.TransitionOut, sc.Out),
			Dialogue:      make([]Dialogue, 0, len(sc.Dialogue)),
		}
		for di, d := range sc.Dialogue {
			scene.Dialogue = append(scene.Dialogue, Dialogue{
				Number:     orPosition(d.Number, di),
				Action:     d.Action,
				Line:       d.Line,
				Actor:      d.Actor,
				Words:      []words.Word{},
				IsMediaCue: IsMediaActor(d.Actor),
			})
		}
		ep.Scenes = append(ep.Scenes, scene)
	}
	return ep
}

func orPosition(n, index int) int {
	if n > 0 {
		return n
	}
	return index + 1
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
