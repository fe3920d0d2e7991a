package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

type migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// registered lists every schema step in version order.
var registered = []migration{
	{Version: 1, Name: "time_logs", Apply: migrateV001},
}

// MigrationRunner brings a SQLite database up to the current time_logs schema.
type MigrationRunner struct {
	db          *sql.DB
	journalMode string
	steps       []migration
}

// NewMigrationRunner returns a runner that switches the database to WAL before
// migrating.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{db: db, journalMode: "WAL", steps: registered}
}

// WithJournalMode overrides the journal mode (e.g. "wal", "delete"). An empty
// mode leaves the database setting alone.
func (r *MigrationRunner) WithJournalMode(mode string) *MigrationRunner {
	r.journalMode = strings.ToUpper(strings.TrimSpace(mode))
	return r
}

// Run applies every pending step, each in its own transaction, and returns the
// versions it applied. Running against an up-to-date database is a no-op.
func (r *MigrationRunner) Run() ([]int, error) {
	if r.journalMode != "" {
		if _, err := r.db.Exec("PRAGMA journal_mode = " + r.journalMode); err != nil {
			return nil, fmt.Errorf("set journal mode %s: %w", r.journalMode, err)
		}
	}
	if err := r.ensureTable(); err != nil {
		return nil, err
	}

	pending, err := r.Pending()
	if err != nil {
		return nil, err
	}

	applied := make([]int, 0, len(pending))
	for _, m := range pending {
		if err := r.apply(m); err != nil {
			return applied, fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

// Pending returns the steps not yet recorded in schema_migrations.
func (r *MigrationRunner) Pending() ([]migration, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.appliedVersions()
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, m := range r.steps {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out, nil
}

// Version returns the highest applied schema version, 0 for a fresh database.
func (r *MigrationRunner) Version() (int, error) {
	var v sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func (r *MigrationRunner) ensureTable() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (r *MigrationRunner) appliedVersions() (map[int]bool, error) {
	rows, err := r.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	done := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (r *MigrationRunner) apply(m migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.Apply(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}
