// Package catalog persists named rulesets in a local SQLite database so
// the CLI, the HTTP viewer and the MCP tools all read the same copies.
// Rulesets are stored as the YAML document they were imported from,
// alongside enough metadata to list them without decoding. Every write
// leaves a row in an audit trail.
package catalog

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"canopy/internal/rules"
)

// ErrNotFound is returned when the named ruleset is not in the catalog.
var ErrNotFound = errors.New("ruleset not found")

// ErrExists is returned by Save when the name is taken and replacing was
// not requested.
var ErrExists = errors.New("ruleset already exists")

// Store is a catalog handle. It is safe for concurrent use; SQLite
// serializes writers and the WAL keeps readers out of their way.
type Store struct {
	db *sql.DB
}

// Entry is one catalog row without the ruleset document itself.
type Entry struct {
	Name       string   `json:"name"`
	Source     string   `json:"source,omitempty"`
	RuleCount  int      `json:"rule_count"`
	ClassNames []string `json:"classes,omitempty"`
	Regression bool     `json:"regression,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rs under name. source records where the document came
// from, typically the imported file path. With replace set an existing
// entry is overwritten in place, keeping its creation time; otherwise a
// name collision returns ErrExists.
func (s *Store) Save(name, source string, rs *rules.Ruleset, replace bool) error {
	if name == "" {
		return fmt.Errorf("save ruleset: empty name")
	}
	var doc bytes.Buffer
	if err := rules.EncodeRuleset(&doc, rs); err != nil {
		return fmt.Errorf("save ruleset %q: %w", name, err)
	}
	classes, _ := json.Marshal(rs.ClassNames)
	features, _ := json.Marshal(rs.FeatureNames)
	now := time.Now().UTC().Format(time.RFC3339)

	var createdAt string
	err := s.db.QueryRow(`SELECT created_at FROM rulesets WHERE name = ?`, name).Scan(&createdAt)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(
			`INSERT INTO rulesets (name, source, regression, classes, features, rule_count, document, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			name, source, boolInt(rs.Regression), string(classes), string(features),
			len(rs.Rules), doc.String(), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert ruleset %q: %w", name, err)
		}
		s.logEvent("import", name, fmt.Sprintf("%d rules from %s", len(rs.Rules), source))
		slog.Info("ruleset imported", "name", name, "rules", len(rs.Rules), "source", source)
		return nil
	case err != nil:
		return fmt.Errorf("save ruleset %q: %w", name, err)
	}

	if !replace {
		return fmt.Errorf("%q: %w", name, ErrExists)
	}
	_, err = s.db.Exec(
		`UPDATE rulesets SET source = ?, regression = ?, classes = ?, features = ?,
		 rule_count = ?, document = ?, updated_at = ? WHERE name = ?`,
		source, boolInt(rs.Regression), string(classes), string(features),
		len(rs.Rules), doc.String(), now, name,
	)
	if err != nil {
		return fmt.Errorf("update ruleset %q: %w", name, err)
	}
	s.logEvent("replace", name, fmt.Sprintf("%d rules from %s", len(rs.Rules), source))
	slog.Info("ruleset replaced", "name", name, "rules", len(rs.Rules), "source", source)
	return nil
}

// Ruleset loads and decodes the named ruleset.
func (s *Store) Ruleset(name string) (*rules.Ruleset, error) {
	var doc string
	err := s.db.QueryRow(`SELECT document FROM rulesets WHERE name = ?`, name).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load ruleset %q: %w", name, err)
	}
	rs, err := rules.DecodeRuleset(bytes.NewReader([]byte(doc)))
	if err != nil {
		return nil, fmt.Errorf("stored ruleset %q: %w", name, err)
	}
	return rs, nil
}

// Entry returns the catalog metadata for name.
func (s *Store) Entry(name string) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT name, source, regression, classes, rule_count, created_at, updated_at
		 FROM rulesets WHERE name = ?`, name)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load entry %q: %w", name, err)
	}
	return e, nil
}

// List returns every catalog entry ordered by name.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT name, source, regression, classes, rule_count, created_at, updated_at
		 FROM rulesets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list rulesets: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list rulesets: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Delete removes the named ruleset. Deleting an absent name returns
// ErrNotFound.
func (s *Store) Delete(name string) error {
	res, err := s.db.Exec(`DELETE FROM rulesets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete ruleset %q: %w", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	s.logEvent("delete", name, "")
	slog.Info("ruleset deleted", "name", name)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var regression int
	var classes string
	if err := row.Scan(&e.Name, &e.Source, &regression, &classes, &e.RuleCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Regression = regression != 0
	if err := json.Unmarshal([]byte(classes), &e.ClassNames); err != nil {
		return nil, fmt.Errorf("decode classes: %w", err)
	}
	return &e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
