package storage

import "database/sql"

// migrateV001 creates the trace history schema. Every statement uses
// IF NOT EXISTS so a half-applied run can be repeated.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS traces (
			id                TEXT PRIMARY KEY,
			word              TEXT NOT NULL,
			normalized_word   TEXT NOT NULL,
			origin_word       TEXT NOT NULL DEFAULT '',
			modern_word       TEXT NOT NULL DEFAULT '',
			etymology_summary TEXT NOT NULL DEFAULT '',
			stage_count       INTEGER NOT NULL DEFAULT 0,
			provider          TEXT NOT NULL DEFAULT '',
			fetched_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS stages (
			trace_id    TEXT NOT NULL REFERENCES traces(id) ON DELETE CASCADE,
			position    INTEGER NOT NULL,
			year        INTEGER NOT NULL,
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL,
			language    TEXT NOT NULL,
			word        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			region      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (trace_id, position)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_traces_normalized ON traces(normalized_word, fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_traces_fetched_at ON traces(fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_stages_language   ON stages(language)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
