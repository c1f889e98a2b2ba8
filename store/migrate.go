package store

import (
	"database/sql"
	"fmt"
)

// schemaVersion is the latest schema version supported by the migrator.
const schemaVersion = 1

// migrate ensures the SQLite schema exists and is upgraded to schemaVersion.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if current < 1 {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				address TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			);`,
			`CREATE TABLE IF NOT EXISTS commitments (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id INTEGER NOT NULL REFERENCES accounts(id),
				goal_description TEXT NOT NULL,
				task_description TEXT NOT NULL DEFAULT '',
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				stake_amount REAL NOT NULL,
				stake_type TEXT NOT NULL,
				schedule TEXT NOT NULL DEFAULT '{}',
				verification_method TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'active',
				created_at TEXT NOT NULL
			);`,
			// One active commitment per account, enforced by the database so
			// concurrent inserts cannot race past the application check.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_commitments_one_active
				ON commitments(account_id) WHERE status = 'active';`,
			`CREATE TABLE IF NOT EXISTS verifications (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				commitment_id INTEGER NOT NULL REFERENCES commitments(id),
				due_date TEXT NOT NULL,
				proof_reference TEXT NOT NULL DEFAULT '',
				justification TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'completed_on_time',
				verified_at TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_verifications_commitment
				ON verifications(commitment_id);`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("migrate: apply v1: %w", err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (1);`); err != nil {
			return fmt.Errorf("migrate: record v1: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	return nil
}
