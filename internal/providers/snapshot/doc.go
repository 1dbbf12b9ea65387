// Package snapshot enumerates the windows visible on the desktop.
//
// A Provider answers two questions per tick: which processes currently own
// visible top-level windows (with their titles, in window-stack order), and
// which window has focus. Both calls are synchronous and return plain
// values; no policy is applied here.
//
// Providers:
//   - X11: process table from /proc via prometheus/procfs, windows from
//     `wmctrl -lp`, focus from `xprop -root _NET_ACTIVE_WINDOW`
//   - Static: in-memory values, for tests and headless runs
//
// Example Usage:
//
//	p, err := snapshot.New(snapshot.Config{Kind: "x11", Timeout: 2 * time.Second}, logger)
//	entries, err := p.Enumerate(ctx)
//	focused, err := p.Foreground(ctx)
package snapshot
