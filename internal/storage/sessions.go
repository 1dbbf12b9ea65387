package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/shared/types"
)

const sessionColumns = "id, process_name, window_title, start_time, end_time, is_foreground, raw_process_name"

// legacy rows written by older observers used naive local timestamps
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// Tx is a session-table view bound to one transaction
type Tx struct {
	tx *sql.Tx
}

// OpenKeys returns the identity of every session with no end time.
func (t *Tx) OpenKeys(ctx context.Context) (map[types.SessionKey]struct{}, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT process_name, window_title FROM app_usage WHERE end_time IS NULL")
	if err != nil {
		return nil, fmt.Errorf("query open sessions: %w", err)
	}
	defer rows.Close()

	open := make(map[types.SessionKey]struct{})
	for rows.Next() {
		var key types.SessionKey
		if err := rows.Scan(&key.Process, &key.Title); err != nil {
			return nil, fmt.Errorf("scan open session: %w", err)
		}
		open[key] = struct{}{}
	}
	return open, rows.Err()
}

// Insert records a new open session and returns its row id. raw is the
// process name as reported by the provider; key.Process is its display
// identity at insert time.
func (t *Tx) Insert(ctx context.Context, key types.SessionKey, raw string, start time.Time, foreground bool) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO app_usage (process_name, window_title, start_time, end_time, is_foreground, raw_process_name)
		VALUES (?, ?, ?, NULL, ?, ?)`,
		key.Process, key.Title, types.FormatTime(start), boolToInt(foreground), nullString(raw))
	if err != nil {
		return 0, fmt.Errorf("insert session %q/%q: %w", key.Process, key.Title, err)
	}
	return res.LastInsertId()
}

// CloseOpen sets end_time on every open session with the given identity.
// end_time never precedes the session's start_time.
func (t *Tx) CloseOpen(ctx context.Context, key types.SessionKey, end time.Time) (int64, error) {
	ts := types.FormatTime(end)
	res, err := t.tx.ExecContext(ctx, `
		UPDATE app_usage
		SET end_time = CASE WHEN start_time > ? THEN start_time ELSE ? END
		WHERE process_name = ? AND window_title = ? AND end_time IS NULL`,
		ts, ts, key.Process, key.Title)
	if err != nil {
		return 0, fmt.Errorf("close session %q/%q: %w", key.Process, key.Title, err)
	}
	return res.RowsAffected()
}

// ProcessFilter selects the sessions of a set of processes. Rows with a
// raw name match on Raw. Rows written before raw names were stored match
// on Legacy display names instead.
type ProcessFilter struct {
	Raw    []string
	Legacy []string
}

// Empty reports whether the filter matches nothing
func (f ProcessFilter) Empty() bool {
	return len(f.Raw) == 0 && len(f.Legacy) == 0
}

func (f ProcessFilter) match() (string, []any) {
	var (
		parts []string
		args  []any
	)
	if len(f.Raw) > 0 {
		parts = append(parts, "COALESCE(raw_process_name, '') IN ("+placeholders(len(f.Raw))+")")
		args = append(args, stringArgs(f.Raw)...)
	}
	if len(f.Legacy) > 0 {
		parts = append(parts, "(raw_process_name IS NULL AND COALESCE(process_name, '') IN ("+placeholders(len(f.Legacy))+"))")
		args = append(args, stringArgs(f.Legacy)...)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// DeleteProcesses removes every session matched by f.
func (t *Tx) DeleteProcesses(ctx context.Context, f ProcessFilter) (int64, error) {
	if f.Empty() {
		return 0, nil
	}
	where, args := f.match()
	res, err := t.tx.ExecContext(ctx, "DELETE FROM app_usage WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete processes: %w", err)
	}
	return res.RowsAffected()
}

// DeleteProcesses removes every session matched by f.
func (s *Store) DeleteProcesses(ctx context.Context, f ProcessFilter) (int64, error) {
	var n int64
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.DeleteProcesses(ctx, f)
		return err
	})
	return n, err
}

// DeleteStartedBefore removes sessions whose start_time precedes cutoff,
// open or closed.
func (s *Store) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.InTx(ctx, func(tx *Tx) error {
		res, err := tx.tx.ExecContext(ctx,
			"DELETE FROM app_usage WHERE start_time < ?", types.FormatTime(cutoff))
		if err != nil {
			return fmt.Errorf("delete expired sessions: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Clear removes all sessions.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var n int64
	err := s.InTx(ctx, func(tx *Tx) error {
		res, err := tx.tx.ExecContext(ctx, "DELETE FROM app_usage")
		if err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Query filters session listings.
type Query struct {
	// Exclude drops the sessions of these processes.
	Exclude ProcessFilter
	// ClosedOnly drops open sessions.
	ClosedOnly bool
	// Limit caps the number of rows; 0 means no cap.
	Limit int
}

// List returns sessions newest-first by start_time.
func (s *Store) List(ctx context.Context, q Query) ([]types.Session, error) {
	var (
		where []string
		args  []any
	)
	if q.ClosedOnly {
		where = append(where, "end_time IS NOT NULL")
	}
	if !q.Exclude.Empty() {
		match, matchArgs := q.Exclude.match()
		where = append(where, "NOT "+match)
		args = append(args, matchArgs...)
	}

	query := "SELECT " + sessionColumns + " FROM app_usage"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// OpenSessions returns every session with no end time, oldest first.
func (s *Store) OpenSessions(ctx context.Context) ([]types.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM app_usage WHERE end_time IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]types.Session, error) {
	var out []types.Session
	for rows.Next() {
		var (
			sess  types.Session
			start string
			end   sql.NullString
			fg    sql.NullInt64
			name  sql.NullString
			title sql.NullString
			raw   sql.NullString
		)
		if err := rows.Scan(&sess.ID, &name, &title, &start, &end, &fg, &raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.ProcessName = name.String
		sess.WindowTitle = title.String
		sess.RawName = raw.String
		sess.IsForeground = fg.Int64 == 1

		var err error
		if sess.StartTime, err = parseStored(start); err != nil {
			return nil, fmt.Errorf("session %d start_time: %w", sess.ID, err)
		}
		if end.Valid {
			t, err := parseStored(end.String)
			if err != nil {
				return nil, fmt.Errorf("session %d end_time: %w", sess.ID, err)
			}
			sess.EndTime = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func parseStored(s string) (time.Time, error) {
	t, err := types.ParseTime(s)
	if err == nil {
		return t, nil
	}
	for _, layout := range legacyLayouts {
		if lt, lerr := time.ParseInLocation(layout, s, time.Local); lerr == nil {
			return lt.UTC(), nil
		}
	}
	return time.Time{}, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
