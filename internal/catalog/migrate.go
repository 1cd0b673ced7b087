package catalog

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	stmts := []string{
		// Imported rulesets, one row per name. The document column holds
		// the YAML exactly as the codec writes it; classes and features
		// are JSON arrays for cheap listing.
		`CREATE TABLE IF NOT EXISTS rulesets (
			name       TEXT PRIMARY KEY,
			source     TEXT NOT NULL DEFAULT '',
			regression INTEGER NOT NULL DEFAULT 0,
			classes    TEXT NOT NULL DEFAULT '[]',
			features   TEXT NOT NULL DEFAULT '[]',
			rule_count INTEGER NOT NULL DEFAULT 0,
			document   TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		// Audit trail of catalog writes.
		`CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			op         TEXT NOT NULL,
			ruleset    TEXT NOT NULL DEFAULT '',
			detail     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}
