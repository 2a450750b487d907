// Package clip turns a finalized timing record into cut points and runs the
// cuts.
//
// A Resolver maps a Selection (one scene, a contiguous range, a set of
// scenes, an explicit time range, or a transcript search) to Cut values.
// Scene starts are anchored on the first audible word after the visual
// transition plus an encoder latency offset, so clips open on speech rather
// than a silent beat. Executor runs cuts through an ffmpeg cutter with
// bounded parallelism; one failed cut never stops its siblings.
//
// Overview and WriteEDL render the same data for the list command and for
// editors that import CMX3600 edit decision lists.
package clip
