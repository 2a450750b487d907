package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)
	requireContains(t, out, "stagecap-test-missing-ffmpeg")
}

func TestListShowsScenes(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeRecord(t, "ep.mp4")

	out, _, err := runCLI(t, []string{"list", filepath.Join(env.outputDir, "ep.mp4")}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "ada: Hello ElizaOS")
	requireContains(t, out, "lab")
}

func TestListMissingRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"list", filepath.Join(env.outputDir, "nothing.mp4")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "looked for") {
		t.Fatalf("expected missing record error, got %v", err)
	}
}

func TestExtractDryRunAndEDL(t *testing.T) {
	env := setupCLITestEnv(t)
	record := env.writeRecord(t, "ep_fps30.mp4")
	edl := filepath.Join(env.baseDir, "cuts.edl")

	out, _, err := runCLI(t, []string{"extract", record, "--scene", "2", "--dry-run", "--edl", edl}, env.configPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	requireContains(t, out, "ep_scene2.mp4")
	requireContains(t, out, "20.00")
	data, err := os.ReadFile(edl)
	if err != nil {
		t.Fatalf("read edl: %v", err)
	}
	requireContains(t, string(data), "TITLE: ep")
	requireContains(t, string(data), "* FROM CLIP NAME: ep_fps30.mp4")
}

func TestExtractSelectionFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	record := env.writeRecord(t, "ep.mp4")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"none", nil, "choose a selection"},
		{"two", []string{"--scene", "1", "--scenes", "1,2"}, "choose only one"},
		{"half range", []string{"--from", "1"}, "must be given together"},
		{"bad time", []string{"--start", "1:75", "--end", "2:00"}, "bad seconds"},
		{"unknown scene", []string{"--scene", "9"}, "invalid selection"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"extract", record, "--dry-run"}, tc.args...)
			_, _, err := runCLI(t, args, env.configPath)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSearchListsMatches(t *testing.T) {
	env := setupCLITestEnv(t)
	record := env.writeRecord(t, "ep.mp4")

	out, _, err := runCLI(t, []string{"search", record, "--query", "elizaos"}, env.configPath)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	requireContains(t, out, "Hello ElizaOS")
	requireContains(t, out, "ElizaOS again")

	out, _, err = runCLI(t, []string{"search", record, "-q", "nobody said this"}, env.configPath)
	if err != nil {
		t.Fatalf("search no match: %v", err)
	}
	requireContains(t, out, "No timed lines match")
}

func TestReplayWritesRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ep_events.ndjson")
	lines := []string{
		`{"kind":"recording_start","time":"2026-01-31T20:00:00Z","offset_sec":0,"frame":0}`,
		`{"kind":"load_show","time":"2026-01-31T20:00:01Z","offset_sec":1,"frame":30,"data":{"id":"s1","name":"Show"}}`,
		`{"kind":"load_episode","time":"2026-01-31T20:00:02Z","offset_sec":2,"frame":60,"data":{"id":"e1","name":"Pilot","scenes":[{"location":"bar","dialogue":[{"actor":"ada","line":"Hi there"}]}]}}`,
		`{"kind":"recording_stop","time":"2026-01-31T20:00:30Z","offset_sec":30,"frame":900,"data":{"reason":"timeout","file":"/tmp/ep_raw.webm"}}`,
	}
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"replay", logPath, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	var res replayResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode replay output: %v\n%s", err, out)
	}
	if res.Base != "ep" || res.Events != 4 || res.DurationSec != 30 {
		t.Fatalf("unexpected replay result: %+v", res)
	}
	if res.RecordPath != filepath.Join(dir, "ep_session-log.json") {
		t.Fatalf("record path = %q", res.RecordPath)
	}
	data, err := os.ReadFile(res.RecordPath)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	requireContains(t, string(data), `"video_file": "ep_raw.webm"`)
}

func TestRecordTimesOutAndLandsInHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"record", "--name", "2026-01-31_Show_Pilot", "--no-capture", "--skip-preflight", "--bind", "127.0.0.1:0",
	}, env.configPath)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	requireContains(t, out, "finished: timeout")
	requireContains(t, out, "record not written")

	if _, err := os.Stat(env.metrics); err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "--sessions"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "2026-01-31_Show_Pilot")
	requireContains(t, out, "timeout")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No cuts recorded")
}

func TestDoctorReportsMissingBinaries(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail with missing ffmpeg")
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "[FAIL]")
	requireContains(t, out, "Output directory")
}
