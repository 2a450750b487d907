package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionEntry is one finished capture session.
type SessionEntry struct {
	ID             string
	BaseName       string
	Reason         string
	CompletionKind string
	Phase          string
	DurationSec    float64
	Events         int
	Words          int
	VideoFile      string
	RecordPath     string
	FinishedAt     time.Time
}

// CutEntry is one clip cut attempt.
type CutEntry struct {
	ID           int64
	Source       string
	Label        string
	StartSec     float64
	EndSec       float64
	Dest         string
	Status       string
	ErrorMessage string
	Elapsed      time.Duration
	CreatedAt    time.Time
}

// RecordSession stores a session; recording the same id twice replaces it.
func (s *Store) RecordSession(ctx context.Context, e SessionEntry) error {
	if e.FinishedAt.IsZero() {
		e.FinishedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (
            id, base_name, reason, completion_kind, phase, duration_sec,
            events, words, video_file, record_path, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.BaseName,
		e.Reason,
		nullable(e.CompletionKind),
		e.Phase,
		e.DurationSec,
		e.Events,
		e.Words,
		nullable(e.VideoFile),
		nullable(e.RecordPath),
		e.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecordCut appends a cut outcome and returns its id.
func (s *Store) RecordCut(ctx context.Context, e CutEntry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cuts (
            source, label, start_sec, end_sec, dest, status, error_message, elapsed_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Source,
		e.Label,
		e.StartSec,
		e.EndSec,
		e.Dest,
		e.Status,
		nullable(e.ErrorMessage),
		e.Elapsed.Milliseconds(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert cut: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecentCuts returns up to limit cuts, newest first.
func (s *Store) RecentCuts(ctx context.Context, limit int) ([]CutEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, label, start_sec, end_sec, dest, status, error_message, elapsed_ms, created_at
         FROM cuts ORDER BY created_at DESC, id DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query cuts: %w", err)
	}
	defer rows.Close()

	var out []CutEntry
	for rows.Next() {
		var (
			e         CutEntry
			errMsg    sql.NullString
			elapsedMS int64
			created   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Label, &e.StartSec, &e.EndSec, &e.Dest, &e.Status, &errMsg, &elapsedMS, &created); err != nil {
			return nil, fmt.Errorf("scan cut: %w", err)
		}
		e.ErrorMessage = errMsg.String
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]SessionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, base_name, reason, completion_kind, phase, duration_sec, events, words, video_file, record_path, finished_at
         FROM sessions ORDER BY finished_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionEntry
	for rows.Next() {
		var (
			e        SessionEntry
			kind     sql.NullString
			video    sql.NullString
			record   sql.NullString
			finished sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.BaseName, &e.Reason, &kind, &e.Phase, &e.DurationSec, &e.Events, &e.Words, &video, &record, &finished); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.CompletionKind = kind.String
		e.VideoFile = video.String
		e.RecordPath = record.String
		e.FinishedAt = parseTime(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
