package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stagecap/internal/services"
	"stagecap/internal/timing"
)

// Version tags the record layout.
const Version = "6.0"

// Record is the persisted session document.
type Record struct {
	Version     string          `json:"version"`
	RecordedAt  time.Time       `json:"recorded_at"`
	DurationSec float64         `json:"duration_sec"`
	VideoFile   string          `json:"video_file,omitempty"`
	Show        *timing.Show    `json:"show"`
	Episode     *timing.Episode `json:"episode"`
}

// Write stores rec at path atomically.
func Write(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// Locate finds the timing record for a video: the current record name first,
// then the legacy name.
func Locate(videoPath string) (string, error) {
	dir := filepath.Dir(videoPath)
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	candidates := []string{
		filepath.Join(dir, base+RecordSuffix),
		filepath.Join(dir, base+LegacySuffix),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrMissingSessionRecord, "record", "locate",
		fmt.Sprintf("looked for %s", strings.Join(candidates, ", ")), nil)
}

// Loaded is a record read back for clipping.
type Loaded struct {
	Path    string
	Legacy  bool
	Record  Record
	Episode *timing.Episode
}

type shapeProbe struct {
	Episode     json.RawMessage `json:"episode"`
	EpisodeData json.RawMessage `json:"episode_data"`
	Scenes      json.RawMessage `json:"scenes"`
}

// Load reads a record in either shape: the wrapped form with an episode
// object, or the older flat form with scenes at the top level.
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingSessionRecord, "record", "load", path, err)
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	var probe shapeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, services.Wrap(services.ErrValidation, "record", "load", path, err)
	}

	out := &Loaded{Path: path}
	switch {
	case present(probe.Episode) || present(probe.EpisodeData):
		if err := json.Unmarshal(data, &out.Record); err != nil {
			return nil, services.Wrap(services.ErrValidation, "record", "load", path, err)
		}
		if out.Record.Episode == nil {
			var ep timing.Episode
			if err := json.Unmarshal(probe.EpisodeData, &ep); err != nil {
				return nil, services.Wrap(services.ErrValidation, "record", "load episode_data", path, err)
			}
			out.Record.Episode = &ep
		}
		out.Episode = out.Record.Episode
	case present(probe.Scenes):
		var ep timing.Episode
		if err := json.Unmarshal(data, &ep); err != nil {
			return nil, services.Wrap(services.ErrValidation, "record", "load legacy", path, err)
		}
		out.Legacy = true
		out.Episode = &ep
		out.Record = Record{Episode: &ep}
	default:
		return nil, services.Wrap(services.ErrValidation, "record", "load", "no episode scenes in "+path, nil)
	}
	if out.Episode.Scenes == nil {
		return nil, services.Wrap(services.ErrValidation, "record", "load", "no episode scenes in "+path, nil)
	}
	markMediaCues(out.Episode)
	return out, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// markMediaCues flags media lines in records written before the flag existed.
func markMediaCues(ep *timing.Episode) {
	for si := range ep.Scenes {
		for di := range ep.Scenes[si].Dialogue {
			d := &ep.Scenes[si].Dialogue[di]
			if !d.IsMediaCue && timing.IsMediaActor(d.Actor) {
				d.IsMediaCue = true
			}
		}
	}
}
