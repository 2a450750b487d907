// Package ffprobe reads duration, frame rate and stream layout from a
// recording. Clip cuts are clamped to the probed duration and EDL exports
// use the probed frame rate.
package ffprobe
