package clip

import (
	"math"
	"strings"

	"stagecap/internal/timing"
)

const previewWidth = 70

// SceneSummary is one row of the scene overview.
type SceneSummary struct {
	Number      int
	StartSec    float64
	DurationSec float64
	Location    string
	Preview     string
	Lines       int
}

// Overview summarizes every scene with its visual start and a short preview.
func Overview(ep *timing.Episode) []SceneSummary {
	if ep == nil {
		return nil
	}
	r := NewResolver(ep, Options{})
	rows := make([]SceneSummary, 0, len(ep.Scenes))
	for i := range ep.Scenes {
		scene := &ep.Scenes[i]
		start := r.VisualStart(i)
		row := SceneSummary{
			Number:   scene.Number,
			StartSec: start,
			Location: scene.Location,
			Preview:  truncate(preview(scene), previewWidth),
			Lines:    len(scene.Dialogue),
		}
		if row.Number == 0 {
			row.Number = i + 1
		}
		if end, ok := firstSet(scene.EndSec, scene.VisualEndSec); ok && end > start {
			row.DurationSec = math.Round(end - start)
		}
		rows = append(rows, row)
	}
	return rows
}

func preview(scene *timing.Scene) string {
	for i := range scene.Dialogue {
		d := &scene.Dialogue[i]
		if d.IsMediaCue || strings.TrimSpace(d.Line) == "" {
			continue
		}
		return d.Actor + ": " + strings.Join(strings.Fields(d.Line), " ")
	}
	return strings.Join(strings.Fields(scene.Description), " ")
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
