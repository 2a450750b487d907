// Package logging assembles structured slog loggers and formatting helpers used
// across stagecap.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so recorder and clip code can tag
// log lines with session and correlation IDs. Per-session JSON log files are
// produced by teeing the application logger, and old ones are pruned by
// retention. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
