package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stagecap/internal/clip"
	"stagecap/internal/ledger"
	"stagecap/internal/logging"
	"stagecap/internal/services"
	"stagecap/internal/session"
	"stagecap/internal/timing"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionObserverRecordsSummary(t *testing.T) {
	store := openStore(t)
	obs := ledger.NewSessionObserver(store, "2026-01-31_Show_Pilot", logging.NewNop())
	obs.SessionEnded(session.Summary{
		SessionID:   "abc",
		Completion:  session.Completion{Reason: session.ReasonNarrative, Kind: "end_postcredits", OffsetSec: 610},
		Phase:       session.PhasePostCredits,
		VideoPath:   "/out/2026-01-31_Show_Pilot.mp4",
		RecordPath:  "/out/2026-01-31_Show_Pilot_session-log.json",
		DurationSec: 613,
		Events:      42,
		Stats:       timing.Stats{Words: 900},
	})

	got, err := store.RecentSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one session, got %d", len(got))
	}
	s := got[0]
	if s.ID != "abc" || s.Reason != "narrative" || s.CompletionKind != "end_postcredits" || s.Words != 900 {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.VideoFile != "2026-01-31_Show_Pilot.mp4" || s.FinishedAt.IsZero() {
		t.Fatalf("unexpected video or time: %+v", s)
	}
}

func TestCutHookAppendsOutcomes(t *testing.T) {
	store := openStore(t)
	hook := store.CutHook("/v/ep.mp4", logging.NewNop())

	hook(clip.Outcome{
		Job:     clip.Job{Cut: clip.Cut{StartSec: 10.57, EndSec: 20, Label: "scene 2"}, Dest: "/c/ep_scene2.mp4"},
		Elapsed: 1500 * time.Millisecond,
	})
	hook(clip.Outcome{
		Job: clip.Job{Cut: clip.Cut{StartSec: 0, EndSec: 5, Label: "scene 1"}, Dest: "/c/ep_scene1.mp4"},
		Err: services.Wrap(services.ErrTranscodeFailure, "ffmpeg", "cut", "exit status 1", nil),
	})

	cuts, err := store.RecentCuts(context.Background(), 0)
	if err != nil {
		t.Fatalf("RecentCuts: %v", err)
	}
	if len(cuts) != 2 {
		t.Fatalf("expected two cuts, got %d", len(cuts))
	}
	if cuts[0].Label != "scene 1" || cuts[0].Status != "failed" || cuts[0].ErrorMessage == "" {
		t.Fatalf("newest cut should be the failure: %+v", cuts[0])
	}
	if cuts[1].Status != "ok" || cuts[1].Elapsed != 1500*time.Millisecond || cuts[1].StartSec != 10.57 {
		t.Fatalf("unexpected successful cut: %+v", cuts[1])
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.RecordCut(context.Background(), ledger.CutEntry{Source: "a", Label: "x", EndSec: 1, Dest: "d", Status: "ok"}); err != nil {
		t.Fatalf("RecordCut: %v", err)
	}
	_ = store.Close()

	store, err = ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	cuts, err := store.RecentCuts(context.Background(), 5)
	if err != nil || len(cuts) != 1 {
		t.Fatalf("history lost on reopen: %v %v", cuts, err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := ledger.Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
