// Package reconcile keeps the session table in step with the desktop.
//
// Each tick enumerates visible windows, applies the policy (ignored and
// hidden processes dropped, display names applied, pinned titles frozen),
// resolves the focused window, and diffs the resulting (process, title)
// pairs against the open sessions: new pairs are inserted, vanished pairs
// are closed. A focused process with no visible window is recorded once
// and stays open while it keeps focus.
//
// Reconcile is the pure diff; Engine runs it against a provider, the
// policy store and the session database, one tick at a time.
package reconcile
