// Package main hosts the stagecap CLI entrypoint and command graph.
//
// The Cobra command tree drives a recording session (capture, event ingest,
// export), replays recorded event logs, and cuts clips from finished
// recordings. It centralizes configuration resolution and logger setup so
// subcommands only wire internal packages together.
package main
