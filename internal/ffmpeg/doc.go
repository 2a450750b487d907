// Package ffmpeg drives the ffmpeg CLI for post-capture normalization and
// clip cutting.
//
// Invocations are deterministic argument lists. Stderr and the -progress
// stream on stdout are read for progress only; a zero exit is the sole
// success signal. Failures carry the stderr tail in an *ExitError and never
// leave a partial output file in place.
package ffmpeg
