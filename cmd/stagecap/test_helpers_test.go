package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	clipsDir   string
	logDir     string
	metrics    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		outputDir:  filepath.Join(base, "episodes"),
		clipsDir:   filepath.Join(base, "clips"),
		logDir:     filepath.Join(base, "logs"),
		metrics:    filepath.Join(base, "metrics", "stagecap.prom"),
	}
	content := fmt.Sprintf(`[paths]
output_dir = %q
clips_dir = %q
log_dir = %q
metrics_textfile = %q

[recorder]
max_duration_seconds = 1
stall_seconds = 1
min_free_gib = 0

[capture]
enabled = false

[ffmpeg]
ffmpeg_binary = "stagecap-test-missing-ffmpeg"
ffprobe_binary = "stagecap-test-missing-ffprobe"

[logging]
level = "error"
`, env.outputDir, env.clipsDir, env.logDir, env.metrics)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// writeRecord stores a two-scene record beside video in the output directory.
func (e *cliTestEnv) writeRecord(t *testing.T, video string) string {
	t.Helper()
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		t.Fatalf("mkdir output: %v", err)
	}
	stem := strings.TrimSuffix(video, filepath.Ext(video))
	path := filepath.Join(e.outputDir, stem+"_session-log.json")
	body := fmt.Sprintf(`{"version":"6.0","duration_sec":40,"video_file":%q,"show":null,
	"episode":{"id":"1","name":"Pilot","scenes":[
		{"number":1,"location":"bar","startSec":0,"endSec":10,"dialogue":[
			{"number":1,"actor":"ada","line":"Hello ElizaOS","startSec":0.5,"endSec":3,
			 "words":[{"text":"Hello","startSec":0.6,"endSec":1.0}]}]},
		{"number":2,"location":"lab","startSec":10,"endSec":20,"dialogue":[
			{"number":1,"actor":"bob","line":"ElizaOS again","startSec":11,"endSec":14}]}]}}`, video)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}
