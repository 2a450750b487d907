package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SessionLogPattern matches per-session log files in the log directory.
const SessionLogPattern = "*_session.log"

// PruneSessionLogs removes per-session log files in dir older than
// retentionDays, skipping keep. A retentionDays value of 0 disables pruning.
// It returns the number of files removed.
func PruneSessionLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	matches, err := filepath.Glob(filepath.Join(dir, SessionLogPattern))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if path == keep {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "session log prune failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old session log remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("session log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
