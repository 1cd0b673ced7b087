package catalog

import (
	"fmt"
	"log/slog"
	"time"
)

// Event is one row of the catalog audit trail.
type Event struct {
	Op        string `json:"op"`
	Ruleset   string `json:"ruleset,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// logEvent appends to the audit trail. Trail failures are logged and
// swallowed: auditing never blocks the operation it describes.
func (s *Store) logEvent(op, ruleset, detail string) {
	_, err := s.db.Exec(
		`INSERT INTO events (op, ruleset, detail, created_at) VALUES (?, ?, ?, ?)`,
		op, ruleset, detail, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		slog.Warn("audit event not recorded", "op", op, "ruleset", ruleset, "error", err)
	}
}

// History returns the most recent audit events, newest first. limit <= 0
// means a default of 20.
func (s *Store) History(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT op, ruleset, detail, created_at FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Op, &e.Ruleset, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
