package preflight

import (
	"context"

	"stagecap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to a recording run.
// Optional integrations are only checked when configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Clips directory", cfg.Paths.ClipsDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, cfg.Recorder.MinFreeGiB))

	if cfg.Recorder.IngestBind != "" {
		results = append(results, CheckBindAvailable("Ingest listener", cfg.Recorder.IngestBind))
	}
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	for _, status := range CheckSystemDeps(cfg) {
		r := Result{Name: status.Name, Passed: status.Available, Detail: status.Path}
		if !status.Available {
			r.Detail = status.Detail
			if status.Optional {
				r.Passed = true
				r.Detail += " (optional)"
			}
		}
		results = append(results, r)
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
