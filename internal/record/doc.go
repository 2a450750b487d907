// Package record persists capture sessions and reads them back for clipping.
//
// A session is saved as "{base}_session-log.json" with the show metadata
// and the timed episode. Older recordings used "{base}_episode-data-timed.json"
// with scenes at the top level; Locate and Load accept both. Base names are
// "{date}_{show}_{Title-Slug}" derived from the playback URL.
package record
