// Package ledger keeps a SQLite history of recorded sessions and clip cuts.
//
// The schema is created on first open and versioned; a database from another
// schema version is refused rather than migrated. SessionObserver plugs into a
// session runner and CutHook into a clip executor so both append as work
// finishes.
package ledger
