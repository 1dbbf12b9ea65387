// Package types provides shared data structures for the appwatch backend.
//
// Core Types:
//   - Session: One recorded (process, window title) occurrence
//   - SessionKey: Identity of an open session
//   - SnapshotEntry: A process and its visible window titles at one instant
//   - ForegroundInfo: The window holding input focus, after policy
//   - Window: The raw focused window as reported by a provider
//
// Timestamps written to storage use TimeLayout, a fixed-width UTC ISO-8601
// layout, so that text comparison matches chronological order.
//
// Example Usage:
//
//	key := types.SessionKey{Process: "Google Chrome", Title: "Inbox"}
//	fg := types.NoForeground()
package types
