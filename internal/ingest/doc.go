// Package ingest exposes the local HTTP endpoint page instrumentation posts
// playback events and console lines to.
//
// Handlers only decode, stamp, and enqueue. Every message goes onto the
// session runner's single-consumer queue, so the HTTP layer never touches the
// timing record and concurrent requests cannot reorder mutations already
// queued.
package ingest
