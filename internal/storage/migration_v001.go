package storage

import "database/sql"

// migrateV001 creates the initial tabtime schema: the time_logs table, the
// audit log and the indexes the range and grouping queries rely on. Every
// statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────
		`CREATE TABLE IF NOT EXISTS time_logs (
			id            TEXT PRIMARY KEY,
			domain        TEXT NOT NULL,
			duration      INTEGER NOT NULL CHECK (duration >= 0),
			is_productive BOOLEAN NOT NULL DEFAULT 0,
			ts            TEXT NOT NULL,
			date          TEXT NOT NULL,
			url           TEXT NOT NULL DEFAULT '',
			title         TEXT NOT NULL DEFAULT '',
			user_agent    TEXT NOT NULL DEFAULT '',
			ip_address    TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			action    TEXT NOT NULL,
			detail    TEXT NOT NULL DEFAULT '',
			record_id TEXT,
			ts        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────
		`CREATE INDEX IF NOT EXISTS idx_time_logs_date              ON time_logs(date)`,
		`CREATE INDEX IF NOT EXISTS idx_time_logs_date_domain       ON time_logs(date, domain)`,
		`CREATE INDEX IF NOT EXISTS idx_time_logs_date_productive   ON time_logs(date, is_productive)`,
		`CREATE INDEX IF NOT EXISTS idx_time_logs_ts                ON time_logs(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_ts                ON audit_log(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_action            ON audit_log(action)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
