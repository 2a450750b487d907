package clip

import (
	"path/filepath"
	"strconv"
)

// OutputName returns the clip file name for cut within episode.
func OutputName(episode string, c Cut) string {
	return episode + "_" + c.Name + ".mp4"
}

// OutputPath joins OutputName onto dir.
func OutputPath(dir, episode string, c Cut) string {
	return filepath.Join(dir, OutputName(episode, c))
}

func itoa(n int) string { return strconv.Itoa(n) }
