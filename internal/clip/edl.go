package clip

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
)

// recordStart is the conventional 01:00:00:00 record timeline origin.
const recordStart = 3600

// WriteEDL writes cuts as a CMX3600 edit decision list. Source timecodes
// address source; record timecodes lay the cuts back to back.
func WriteEDL(w io.Writer, title, source string, fps int, cuts []Cut) error {
	if fps <= 0 {
		return invalid("edl frame rate must be positive")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "TITLE: %s\n", edlTitle(title))
	fmt.Fprintf(bw, "FCM: NON-DROP FRAME\n\n")

	recordFrames := int64(recordStart * fps)
	clipName := filepath.Base(source)
	for i, c := range cuts {
		in := frames(c.StartSec, fps)
		out := frames(c.EndSec, fps)
		if out <= in {
			continue
		}
		fmt.Fprintf(bw, "%03d  AX       V     C        %s %s %s %s\n",
			i+1,
			timecode(in, fps), timecode(out, fps),
			timecode(recordFrames, fps), timecode(recordFrames+out-in, fps),
		)
		fmt.Fprintf(bw, "* FROM CLIP NAME: %s\n", clipName)
		if c.Label != "" {
			fmt.Fprintf(bw, "* COMMENT: %s\n", strings.ToUpper(c.Label))
		}
		bw.WriteString("\n")
		recordFrames += out - in
	}
	return bw.Flush()
}

func frames(sec float64, fps int) int64 {
	return int64(math.Round(sec * float64(fps)))
}

func timecode(total int64, fps int) string {
	f := int64(fps)
	frame := total % f
	secs := total / f
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60, frame)
}

func edlTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "STAGECAP"
	}
	return title
}
