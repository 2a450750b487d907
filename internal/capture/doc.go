// Package capture provides the capture controllers a recording session
// drives: an ffmpeg grab process that is stopped by sending "q" on stdin,
// and a no-op controller for timing-only sessions.
package capture
