package clip

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"stagecap/internal/services"
)

// Kind identifies what a Selection addresses.
type Kind string

const (
	KindScene  Kind = "scene"
	KindRange  Kind = "range"
	KindSet    Kind = "set"
	KindTime   Kind = "time"
	KindSearch Kind = "search"
)

// Selection is one extraction request.
type Selection struct {
	Kind     Kind
	Scenes   []int
	StartSec float64
	EndSec   float64
	Query    string
}

// SceneSelection selects a single scene by number.
func SceneSelection(n int) Selection {
	return Selection{Kind: KindScene, Scenes: []int{n}}
}

// RangeSelection selects scenes from..to inclusive as one contiguous cut.
func RangeSelection(from, to int) Selection {
	return Selection{Kind: KindRange, Scenes: []int{from, to}}
}

// SetSelection selects several scenes, each cut separately.
func SetSelection(scenes ...int) Selection {
	return Selection{Kind: KindSet, Scenes: append([]int(nil), scenes...)}
}

// TimeSelection selects an explicit interval in seconds.
func TimeSelection(startSec, endSec float64) Selection {
	return Selection{Kind: KindTime, StartSec: startSec, EndSec: endSec}
}

// SearchSelection selects every dialogue line containing query.
func SearchSelection(query string) Selection {
	return Selection{Kind: KindSearch, Query: query}
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrInvalidSelection, "clip", "resolve", fmt.Sprintf(format, args...), nil)
}

// ParseTime reads "M:SS[.fraction]" or bare seconds.
func ParseTime(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, invalid("empty time")
	}
	if strings.ContainsAny(value, "+-") {
		return 0, invalid("time %q must not be signed", value)
	}
	var sec float64
	if mins, rest, ok := strings.Cut(value, ":"); ok {
		m, err := strconv.Atoi(mins)
		if err != nil {
			return 0, invalid("time %q: bad minutes", value)
		}
		s, err := strconv.ParseFloat(rest, 64)
		if err != nil || s >= 60 {
			return 0, invalid("time %q: bad seconds", value)
		}
		sec = float64(m)*60 + s
	} else {
		s, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, invalid("time %q is not M:SS or seconds", value)
		}
		sec = s
	}
	if sec < 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0, invalid("time %q out of range", value)
	}
	return sec, nil
}

// ParseSceneList reads a comma separated list of scene numbers. Each scene
// may appear once.
func ParseSceneList(value string) ([]int, error) {
	var scenes []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, invalid("scene %q is not a number", part)
		}
		if seen[n] {
			return nil, invalid("scene %d listed twice", n)
		}
		seen[n] = true
		scenes = append(scenes, n)
	}
	if len(scenes) == 0 {
		return nil, invalid("no scenes in %q", value)
	}
	return scenes, nil
}

// FormatTime renders seconds as M:SS.
func FormatTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(math.Floor(sec))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
