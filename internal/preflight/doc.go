// Package preflight provides readiness checks for the filesystem paths,
// listener address, and external binaries that a recording run depends on.
//
// The record command calls RunAll before arming the capture and refuses to
// start when a required check fails. The doctor command prints every result.
package preflight
