// Package config reads stagecap's TOML configuration.
//
// Default returns the built-in settings, Load overlays a file and the
// STAGECAP_* environment fallbacks, and Validate rejects values the recorder
// or the clip commands cannot run with. Paths come back expanded, so "~" never
// reaches the filesystem.
package config
