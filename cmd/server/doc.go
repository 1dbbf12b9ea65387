// Package main is the entry point for the appwatch observer.
//
// appwatch records which desktop applications have visible windows, and
// which one has focus, as sessions in a local SQLite database. Each visit
// to the live page runs one reconciliation tick; a retention sweeper deletes
// sessions older than the configured horizon.
//
// Configuration:
//   - Environment variables (PORT, HOST, DB_PATH, SETTINGS_PATH, RETENTION,
//     SWEEP_INTERVAL, PROVIDER, LOG_LEVEL, LOG_DEV, RATE_LIMIT_*)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 5000 -db ~/.local/share/appwatch/app_usage.db
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
