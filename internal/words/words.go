// Package words converts per-character speech timing into word timing.
package words

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CharTiming is one character of synthesized speech with its line-relative
// start and end in seconds.
type CharTiming struct {
	Char     string  `json:"character"`
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
}

// Word is a spoken word with its start and end in seconds.
type Word struct {
	Text     string  `json:"word"`
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
}

// Shift returns a copy of ws with every timestamp offset by delta.
func Shift(ws []Word, delta float64) []Word {
	out := make([]Word, len(ws))
	for i, w := range ws {
		out[i] = Word{Text: w.Text, StartSec: w.StartSec + delta, EndSec: w.EndSec + delta}
	}
	return out
}

// Segment groups character timings into words in a single pass.
//
// A word opens on a letter or digit that is the first character or follows
// whitespace or one of ! ? . : ;. Any other non-whitespace character extends
// the open word, so apostrophes, hyphens, and trailing punctuation stay
// attached. Whitespace is dropped.
func Segment(chars []CharTiming) []Word {
	out := make([]Word, 0, len(chars)/4)
	var (
		open    bool
		current Word
		text    strings.Builder
		prev    rune
	)
	flush := func() {
		if open {
			current.Text = text.String()
			out = append(out, current)
			text.Reset()
		}
	}

	for i, ct := range chars {
		r, _ := utf8.DecodeRuneInString(ct.Char)
		space := r == utf8.RuneError || unicode.IsSpace(r)
		wordRune := unicode.IsLetter(r) || unicode.IsDigit(r)

		switch {
		case wordRune && (i == 0 || unicode.IsSpace(prev) || isSentenceBreak(prev)):
			flush()
			open = true
			current = Word{StartSec: ct.StartSec, EndSec: ct.EndSec}
			text.WriteString(ct.Char)
		case open && !space:
			text.WriteString(ct.Char)
			current.EndSec = ct.EndSec
		}
		prev = r
	}
	flush()
	return out
}

func isSentenceBreak(r rune) bool {
	switch r {
	case '!', '?', '.', ':', ';':
		return true
	}
	return false
}
