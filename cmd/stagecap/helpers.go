package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stagecap/internal/config"
	"stagecap/internal/ledger"
	"stagecap/internal/logging"
	"stagecap/internal/notifications"
	"stagecap/internal/record"
)

const notifyTimeout = 15 * time.Second

// openLedger opens the history database. A ledger that cannot be opened is
// logged and skipped; recording and clipping never depend on it.
func openLedger(cfg *config.Config, logger *slog.Logger) *ledger.Store {
	if strings.TrimSpace(cfg.Paths.LedgerPath) == "" {
		return nil
	}
	store, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		logging.WarnWithContext(logger, "ledger unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String("path", cfg.Paths.LedgerPath),
			logging.String(logging.FieldImpact, "history will not include this run"),
		)
		return nil
	}
	return store
}

func publishError(svc notifications.Service, logger *slog.Logger, label string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if pubErr := svc.Publish(ctx, notifications.EventError, notifications.Payload{"context": label, "error": err}); pubErr != nil {
		logger.Warn("error notification failed", logging.Error(pubErr))
	}
}

// loadRecord accepts either a session record or a video path whose record
// sits beside it.
func loadRecord(path string) (*record.Loaded, error) {
	path = strings.TrimSpace(path)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return record.Load(path)
	}
	recordPath, err := record.Locate(path)
	if err != nil {
		return nil, err
	}
	return record.Load(recordPath)
}

func formatSeconds(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
