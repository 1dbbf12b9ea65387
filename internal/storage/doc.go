// Package storage persists application usage sessions in SQLite.
//
// The database is opened with the modernc.org/sqlite pure-Go driver, WAL
// journaling and a busy timeout. Transactions begin IMMEDIATE so two
// concurrent reconciliation ticks serialize on the write lock instead of
// both reading the same open-session set; InTx retries on SQLITE_BUSY.
//
// Schema (one table):
//
//	app_usage(id, process_name, window_title, start_time, end_time, is_foreground)
//
// Timestamps are stored as fixed-width UTC text (types.TimeLayout), so
// range predicates such as the retention cutoff are plain text comparisons.
package storage
