// Package metrics counts session and clip activity in a private Prometheus
// registry.
//
// Recorder runs are short-lived, so the registry is flushed to a
// node-exporter textfile when a session ends or a clip batch finishes, and
// the same registry is served on the ingest endpoint while recording.
package metrics
