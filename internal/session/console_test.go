package session_test

import (
	"encoding/json"
	"testing"

	"stagecap/internal/session"
)

func TestBridgeTranslate(t *testing.T) {
	var b session.Bridge

	in, ok := b.Translate(session.ConsoleLine{Text: "recorder:load_episode", Args: []json.RawMessage{json.RawMessage(`{"id":1}`)}})
	if !ok || in.Kind != session.KindLoadEpisode || string(in.Data) != `{"id":1}` {
		t.Fatalf("unexpected recorder translation: %+v %v", in, ok)
	}

	in, ok = b.Translate(session.ConsoleLine{Text: "  recorder:end_ep  "})
	if !ok || in.Kind != session.KindEndEpisode || in.Data != nil {
		t.Fatalf("unexpected bare recorder translation: %+v %v", in, ok)
	}

	for want := 1; want <= 2; want++ {
		in, ok = b.Translate(session.ConsoleLine{Text: "=== DIALOGUE START ==="})
		if !ok || in.Kind != session.KindDialogueStart {
			t.Fatalf("expected dialogue start, got %+v", in)
		}
		var payload struct {
			GlobalIndex int `json:"globalIndex"`
		}
		if err := json.Unmarshal(in.Data, &payload); err != nil || payload.GlobalIndex != want {
			t.Fatalf("globalIndex = %d (%v), want %d", payload.GlobalIndex, err, want)
		}
	}

	in, ok = b.Translate(session.ConsoleLine{Text: "Navigating to next episode: /ep/2"})
	if !ok || in.Kind != session.KindNavigation {
		t.Fatalf("expected navigation, got %+v", in)
	}

	if _, ok := b.Translate(session.ConsoleLine{Text: "some unrelated log"}); ok {
		t.Fatal("unrelated lines must be ignored")
	}
}
