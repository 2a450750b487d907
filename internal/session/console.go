package session

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	consolePrefix       = "recorder:"
	dialogueStartMarker = "DIALOGUE START"
	navigationMarker    = "Navigating to next episode:"
)

var recorderKind = regexp.MustCompile(`^recorder:(\w+)`)

// ConsoleLine is one page console message: its text and any further
// arguments as JSON.
type ConsoleLine struct {
	Text string            `json:"text"`
	Args []json.RawMessage `json:"args,omitempty"`
}

// Bridge translates page console output into events. It counts dialogue
// start markers across the whole episode, so one Bridge serves one session
// and must be used from the event consumer only.
type Bridge struct {
	dialogues int
}

// Translate returns the event a console line denotes, if any.
func (b *Bridge) Translate(line ConsoleLine) (Incoming, bool) {
	text := strings.TrimSpace(line.Text)
	if m := recorderKind.FindStringSubmatch(text); m != nil {
		in := Incoming{Kind: m[1]}
		if len(line.Args) > 0 {
			in.Data = line.Args[0]
		}
		return in, true
	}
	if strings.Contains(text, dialogueStartMarker) {
		b.dialogues++
		return Incoming{Kind: KindDialogueStart, Data: json.RawMessage(fmt.Sprintf(`{"globalIndex":%d}`, b.dialogues))}, true
	}
	if strings.Contains(text, navigationMarker) {
		return Incoming{Kind: KindNavigation}, true
	}
	return Incoming{}, false
}
