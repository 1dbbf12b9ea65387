// Package http serves the appwatch web surface: the live and history pages,
// JSON views of sessions and the snapshot, and the settings endpoints.
package http
