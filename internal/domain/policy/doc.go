// Package policy holds the observer's mutable configuration: which
// processes are ignored, pinned to a single title, renamed for display, or
// hidden, and the placeholder shown while a hidden process has focus.
//
// Settings values are immutable snapshots. The Store loads them from the
// persisted JSON document, falls back to defaults when the document is
// missing or malformed, and applies control-panel mutations by writing a new
// document and swapping the cached snapshot.
package policy
