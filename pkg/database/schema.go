package database

import (
	"database/sql"
	"fmt"
)

// Sessions are stored as whole aggregate documents: the indexed columns
// exist only for lookups and the version column backs the CAS update. The
// document column is the source of truth.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	code       TEXT PRIMARY KEY,
	creator_id TEXT NOT NULL,
	partner_id TEXT,
	status     TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	document   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_creator ON sessions(creator_id);
CREATE INDEX IF NOT EXISTS idx_sessions_partner ON sessions(partner_id);
`

// InitializeSchema creates the session table and its indexes.
func InitializeSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// ValidateSchema verifies the sessions table exists with the columns the
// store depends on. Used by health checks and deployment smoke tests.
func ValidateSchema(db *sql.DB) error {
	required := []string{"code", "creator_id", "partner_id", "status", "version", "created_at", "updated_at", "document"}

	rows, err := db.Query(`PRAGMA table_info(sessions)`)
	if err != nil {
		return fmt.Errorf("failed to inspect sessions table: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range required {
		if !present[col] {
			return fmt.Errorf("sessions table is missing column %q", col)
		}
	}
	return nil
}
