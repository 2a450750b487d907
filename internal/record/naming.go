package record

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"stagecap/internal/textutil"
)

const (
	// RecordSuffix names the current session record.
	RecordSuffix = "_session-log.json"
	// LegacySuffix names the older flat timing record.
	LegacySuffix = "_episode-data-timed.json"
	// EventLogSuffix names the NDJSON event log.
	EventLogSuffix = "_events.ndjson"

	episodePathSegment = "shmotime_episode"
	dateLayout         = "2006-01-02"
)

var fpsSuffix = regexp.MustCompile(`_fps\d+$`)

// Slug extracts the episode slug from a playback URL: the path segment after
// the episode marker segment, else the last segment.
func Slug(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	parts := splitPath(u.Path)
	for i, p := range parts {
		if p == episodePathSegment && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadDateList reads a "date,url" list file into a slug-to-date map. Lines
// without a comma are skipped. A missing path yields an empty map.
func LoadDateList(path string) (map[string]string, error) {
	mapping := map[string]string{}
	if strings.TrimSpace(path) == "" {
		return mapping, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mapping, nil
		}
		return nil, fmt.Errorf("open list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		date, link, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		parts := splitPath(strings.TrimSpace(link))
		if len(parts) == 0 {
			continue
		}
		mapping[parts[len(parts)-1]] = strings.TrimSpace(date)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return mapping, nil
}

// ResolveDate picks the canonical date for an episode: the override, else
// the list file entry for slug, else now in UTC.
func ResolveDate(override string, list map[string]string, slug string, now time.Time) string {
	if d := strings.TrimSpace(override); d != "" {
		return d
	}
	if d, ok := list[slug]; ok && d != "" {
		return d
	}
	return now.UTC().Format(dateLayout)
}

// BaseName joins the naming parts into "{date}_{show}_{Title-Slug}".
func BaseName(date, show, slug string) string {
	return fmt.Sprintf("%s_%s_%s", date, textutil.SanitizeFileName(show), textutil.SlugToTitleCase(slug))
}

// Path returns the session record path for base in dir.
func Path(dir, base string) string { return filepath.Join(dir, base+RecordSuffix) }

// EventLogPath returns the event log path for base in dir.
func EventLogPath(dir, base string) string { return filepath.Join(dir, base+EventLogSuffix) }

// RawCapturePath returns where the capture controller writes before transcode.
func RawCapturePath(dir, base, format string) string {
	return filepath.Join(dir, base+"_raw."+format)
}

// EpisodeName derives a clip name prefix from a video path, dropping the
// extension and any frame-rate suffix.
func EpisodeName(videoPath string) string {
	base := filepath.Base(videoPath)
	return fpsSuffix.ReplaceAllString(strings.TrimSuffix(base, filepath.Ext(base)), "")
}
