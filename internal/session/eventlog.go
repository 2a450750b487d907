package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"stagecap/internal/timing"
)

// WriteEventLog writes events as newline-delimited JSON.
func WriteEventLog(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return nil
}

// ReadEventLog reads newline-delimited JSON events. Blank lines are skipped.
func ReadEventLog(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("event log line %d: %w", lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return events, nil
}

type stopData struct {
	Reason Reason `json:"reason"`
	Kind   string `json:"kind"`
}

// Replay feeds a recorded event log through a fresh machine using the
// recorded offsets. Timers never fire; a recorded stop reason is restored
// when the log itself does not complete the session.
func Replay(events []Event, cfg Config, logger *slog.Logger) *Machine {
	clock := &frozenClock{}
	m := NewMachine(cfg, clock, nil, logger)
	if len(events) == 0 {
		return m
	}
	first := events[0]
	m.Start(first.Time.Add(-time.Duration(first.OffsetSec * float64(time.Second))))

	for _, ev := range events {
		clock.now = ev.Time
		if ev.Kind == KindRecordingStop {
			if _, done := m.Completion(); !done {
				var sd stopData
				if len(ev.Data) > 0 && json.Unmarshal(ev.Data, &sd) == nil && sd.Reason != "" {
					m.complete(sd.Reason, sd.Kind, ev.OffsetSec)
				}
			}
			m.events = append(m.events, ev)
			m.episode.Finalize(ev.OffsetSec)
			continue
		}
		m.HandleEvent(Incoming{Kind: ev.Kind, At: ev.Time, Data: ev.Data, Offset: timing.At(ev.OffsetSec)})
	}
	return m
}
