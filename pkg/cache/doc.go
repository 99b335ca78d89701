// Package cache persists the most recent fetch as a single flat JSON file.
//
// A [Snapshot] holds the OAuth token and the two raw API payloads exactly as
// they were received. A successful online fetch overwrites the file
// wholesale; offline runs read it wholesale. There is no merging of cached
// and live data, no partial update, and no schema migration: the snapshot on
// disk is the complete state.
//
// In offline mode the snapshot is the sole source of truth. A missing file
// is reported as [ErrMissing] and a file that fails to parse as
// [ErrMalformed]; neither condition falls back to a live fetch.
package cache
