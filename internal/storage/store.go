package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/tabtime/internal/activity"
)

// tsLayout is fixed-width so that timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// Store defines the interface for tabtime data operations.
type Store interface {
	AddRecord(ctx context.Context, rec *activity.Record) error
	GetRecord(ctx context.Context, id string) (*activity.Record, error)
	UpdateRecord(ctx context.Context, id string, patch RecordPatch) (*activity.Record, error)
	DeleteRecord(ctx context.Context, id string) (*activity.Record, error)
	ListRecords(ctx context.Context, q RecordQuery) ([]activity.Record, int64, error)
	RecordsBetween(ctx context.Context, startDate, endDate string) ([]activity.Record, error)
	RecordsSince(ctx context.Context, from, to time.Time) ([]activity.Record, error)
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	// Prepared statements
	insertRecord *sql.Stmt
	getRecord    *sql.Stmt
	deleteRecord *sql.Stmt
}

const recordColumns = `id, domain, duration, is_productive, ts, date, url, title,
	user_agent, ip_address, created_at, updated_at`

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock replaces time.Now for default timestamps and bookkeeping columns.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertRecord, err = s.db.Prepare(`
		INSERT INTO time_logs (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getRecord, err = s.db.Prepare(`SELECT ` + recordColumns + ` FROM time_logs WHERE id = ?`)
	if err != nil {
		return err
	}

	s.deleteRecord, err = s.db.Prepare(`DELETE FROM time_logs WHERE id = ?`)
	if err != nil {
		return err
	}

	return nil
}

// AddRecord persists rec and assigns its ID. The domain is normalized, a zero
// timestamp becomes now, and a missing date is derived from the timestamp. A
// date that disagrees with the timestamp is rejected with ErrDateMismatch.
func (s *SQLiteStore) AddRecord(ctx context.Context, rec *activity.Record) error {
	if rec.Duration < 0 {
		return fmt.Errorf("insert record: negative duration %d", rec.Duration)
	}

	now := s.now()
	rec.ID = uuid.NewString()
	rec.Domain = activity.NormalizeDomain(rec.Domain)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	day := activity.DateOnly(rec.Timestamp)
	if rec.Date != "" && rec.Date != day {
		return fmt.Errorf("insert record: %w: %s vs %s", ErrDateMismatch, rec.Date, day)
	}
	rec.Date = day
	rec.CreatedAt = now.UTC()
	rec.UpdatedAt = rec.CreatedAt

	_, err := s.insertRecord.ExecContext(ctx,
		rec.ID, rec.Domain, rec.Duration, rec.IsProductive,
		formatTS(rec.Timestamp), rec.Date, rec.URL, rec.Title,
		rec.UserAgent, rec.IPAddress, formatTS(rec.CreatedAt), formatTS(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// GetRecord retrieves a single record by ID.
func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*activity.Record, error) {
	rec, err := scanRecord(s.getRecord.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// UpdateRecord applies patch to the record and returns the updated row.
func (s *SQLiteStore) UpdateRecord(ctx context.Context, id string, patch RecordPatch) (*activity.Record, error) {
	if patch.Duration != nil && *patch.Duration < 0 {
		return nil, fmt.Errorf("update record: negative duration %d", *patch.Duration)
	}

	var sets []string
	var args []interface{}

	if patch.Domain != nil {
		sets = append(sets, "domain = ?")
		args = append(args, activity.NormalizeDomain(*patch.Domain))
	}
	if patch.Duration != nil {
		sets = append(sets, "duration = ?")
		args = append(args, *patch.Duration)
	}
	if patch.IsProductive != nil {
		sets = append(sets, "is_productive = ?")
		args = append(args, *patch.IsProductive)
	}
	if patch.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, *patch.URL)
	}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTS(s.now()), id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE time_logs SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}

	return s.GetRecord(ctx, id)
}

// DeleteRecord removes a record by ID and returns what was deleted.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) (*activity.Record, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.deleteRecord.ExecContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}

	if err := s.audit(ctx, "delete", rec.Domain, id); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords returns one page of records matching q, newest first, along
// with the total number of matches.
func (s *SQLiteStore) ListRecords(ctx context.Context, q RecordQuery) ([]activity.Record, int64, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var clauses []string
	var args []interface{}

	switch {
	case q.Date != "":
		clauses = append(clauses, "date = ?")
		args = append(args, q.Date)
	case q.StartDate != "" && q.EndDate != "":
		clauses = append(clauses, "date >= ? AND date <= ?")
		args = append(args, q.StartDate, q.EndDate)
	}
	if q.Domain != "" {
		clauses = append(clauses, "domain = ?")
		args = append(args, activity.NormalizeDomain(q.Domain))
	}
	if q.IsProductive != nil {
		clauses = append(clauses, "is_productive = ?")
		args = append(args, *q.IsProductive)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM time_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	query := "SELECT " + recordColumns + " FROM time_logs" + where +
		" ORDER BY ts DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	recs, err := s.scanRecords(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// RecordsBetween returns every record whose date lies in the inclusive range,
// oldest first and in insertion order for equal timestamps.
func (s *SQLiteStore) RecordsBetween(ctx context.Context, startDate, endDate string) ([]activity.Record, error) {
	return s.scanRecords(ctx,
		"SELECT "+recordColumns+" FROM time_logs WHERE date >= ? AND date <= ? ORDER BY ts ASC, rowid ASC",
		startDate, endDate,
	)
}

// RecordsSince returns every record whose timestamp lies in [from, to].
func (s *SQLiteStore) RecordsSince(ctx context.Context, from, to time.Time) ([]activity.Record, error) {
	return s.scanRecords(ctx,
		"SELECT "+recordColumns+" FROM time_logs WHERE ts >= ? AND ts <= ? ORDER BY ts ASC, rowid ASC",
		formatTS(from), formatTS(to),
	)
}

// CountExpired reports how many records PruneExpired would delete.
func (s *SQLiteStore) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM time_logs WHERE ts < ?", formatTS(olderThan),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

// PruneExpired deletes records with timestamps before olderThan.
func (s *SQLiteStore) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := formatTS(olderThan)

	res, err := s.db.ExecContext(ctx, "DELETE FROM time_logs WHERE ts < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := s.audit(ctx, "prune", fmt.Sprintf("deleted %d records older than %s", n, cutoff), ""); err != nil {
		return n, err
	}
	return n, nil
}

// PurgeAll deletes all records.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM time_logs"); err != nil {
		return fmt.Errorf("purge records: %w", err)
	}
	return s.audit(ctx, "purge", "all records deleted", "")
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(duration), 0),
		       COALESCE(SUM(CASE WHEN is_productive THEN duration ELSE 0 END), 0)
		FROM time_logs
	`).Scan(&stats.TotalRecords, &stats.TotalDuration, &stats.ProductiveDuration)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	// Oldest and newest (handle empty DB)
	if stats.TotalRecords > 0 {
		var oldestStr, newestStr string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(ts) FROM time_logs").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("record time range: %w", err)
		}
		stats.OldestRecord, _ = parseTimestamp(oldestStr)
		stats.NewestRecord, _ = parseTimestamp(newestStr)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, SUM(duration) AS total, COUNT(*)
		FROM time_logs GROUP BY domain ORDER BY total DESC, domain ASC LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dt DomainTime
		if err := rows.Scan(&dt.Domain, &dt.TotalTime, &dt.Sessions); err != nil {
			return nil, err
		}
		stats.TopDomains = append(stats.TopDomains, dt)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return nil, fmt.Errorf("schema version: %w", err)
	}
	stats.SchemaVersion = int(v.Int64)
	return stats, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.insertRecord, s.getRecord, s.deleteRecord}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

func (s *SQLiteStore) audit(ctx context.Context, action, detail, recordID string) error {
	var id interface{}
	if recordID != "" {
		id = recordID
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_log (action, detail, record_id) VALUES (?, ?, ?)",
		action, detail, id,
	)
	if err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*activity.Record, error) {
	var r activity.Record
	var ts, created, updated string
	if err := row.Scan(
		&r.ID, &r.Domain, &r.Duration, &r.IsProductive, &ts, &r.Date, &r.URL, &r.Title,
		&r.UserAgent, &r.IPAddress, &created, &updated,
	); err != nil {
		return nil, err
	}
	r.Timestamp, _ = parseTimestamp(ts)
	r.CreatedAt, _ = parseTimestamp(created)
	r.UpdatedAt, _ = parseTimestamp(updated)
	return &r, nil
}

// scanRecords executes a query and scans the results. It never returns a
// nil slice on success.
func (s *SQLiteStore) scanRecords(ctx context.Context, query string, args ...interface{}) ([]activity.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	recs := []activity.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		tsLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}
