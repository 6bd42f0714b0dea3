package store

import (
	"database/sql"
	"fmt"
)

// PutFragment stores a fragment and its examples, replacing any earlier
// build of the same documentation file.
func (s *Store) PutFragment(f *Fragment, examples []*Example) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put fragment: begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocumentationTx(tx, f.DocumentationPath); err != nil {
		return fmt.Errorf("put fragment: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM examples WHERE fragment_key = ?", f.Key); err != nil {
		return fmt.Errorf("put fragment: clear examples: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO fragments (key, documentation_path, companion_path, unit_import_path, fragment, built_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   documentation_path = excluded.documentation_path,
		   companion_path = excluded.companion_path,
		   unit_import_path = excluded.unit_import_path,
		   fragment = excluded.fragment,
		   built_at = excluded.built_at`,
		f.Key, f.DocumentationPath, f.CompanionPath, f.UnitImportPath, f.Data, f.BuiltAt,
	)
	if err != nil {
		return fmt.Errorf("put fragment: insert: %w", err)
	}

	for _, ex := range examples {
		res, err := tx.Exec(
			"INSERT INTO examples (fragment_key, ordinal, camel_key, source) VALUES (?, ?, ?, ?)",
			f.Key, ex.Ordinal, ex.CamelKey, ex.Source,
		)
		if err != nil {
			return fmt.Errorf("put fragment: example %q: %w", ex.CamelKey, err)
		}
		ex.FragmentKey = f.Key
		ex.ID, _ = res.LastInsertId()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put fragment: commit: %w", err)
	}
	return nil
}

const fragmentColumns = "key, documentation_path, companion_path, unit_import_path, fragment, built_at"

func scanFragment(row interface{ Scan(...any) error }) (*Fragment, error) {
	f := &Fragment{}
	var companion, unit sql.NullString
	var builtAt sql.NullTime
	if err := row.Scan(&f.Key, &f.DocumentationPath, &companion, &unit, &f.Data, &builtAt); err != nil {
		return nil, err
	}
	f.CompanionPath = companion.String
	f.UnitImportPath = unit.String
	f.BuiltAt = builtAt.Time
	return f, nil
}

// FragmentByKey returns the fragment built from key, or nil when absent.
func (s *Store) FragmentByKey(key string) (*Fragment, error) {
	f, err := scanFragment(s.db.QueryRow("SELECT "+fragmentColumns+" FROM fragments WHERE key = ?", key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fragment by key: %w", err)
	}
	return f, nil
}

// FragmentByDocumentation returns the latest fragment of a documentation
// file, or nil when it was never built.
func (s *Store) FragmentByDocumentation(path string) (*Fragment, error) {
	f, err := scanFragment(s.db.QueryRow(
		"SELECT "+fragmentColumns+" FROM fragments WHERE documentation_path = ? ORDER BY built_at DESC LIMIT 1", path,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fragment by documentation: %w", err)
	}
	return f, nil
}

// Fragments lists every cached fragment ordered by documentation path.
func (s *Store) Fragments() ([]*Fragment, error) {
	rows, err := s.db.Query("SELECT " + fragmentColumns + " FROM fragments ORDER BY documentation_path")
	if err != nil {
		return nil, fmt.Errorf("fragments: %w", err)
	}
	defer rows.Close()
	var out []*Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, fmt.Errorf("fragments: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ExamplesByFragment returns a fragment's examples in ordinal order.
func (s *Store) ExamplesByFragment(key string) ([]*Example, error) {
	rows, err := s.db.Query(
		"SELECT id, fragment_key, ordinal, camel_key, source FROM examples WHERE fragment_key = ? ORDER BY ordinal", key,
	)
	if err != nil {
		return nil, fmt.Errorf("examples by fragment: %w", err)
	}
	defer rows.Close()
	var out []*Example
	for rows.Next() {
		ex := &Example{}
		if err := rows.Scan(&ex.ID, &ex.FragmentKey, &ex.Ordinal, &ex.CamelKey, &ex.Source); err != nil {
			return nil, fmt.Errorf("examples by fragment: scan: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// ExamplesByKey returns cached examples with the given camel key across all
// documentation files.
func (s *Store) ExamplesByKey(camelKey string) ([]*Example, error) {
	rows, err := s.db.Query(
		"SELECT id, fragment_key, ordinal, camel_key, source FROM examples WHERE camel_key = ? ORDER BY fragment_key, ordinal", camelKey,
	)
	if err != nil {
		return nil, fmt.Errorf("examples by key: %w", err)
	}
	defer rows.Close()
	var out []*Example
	for rows.Next() {
		ex := &Example{}
		if err := rows.Scan(&ex.ID, &ex.FragmentKey, &ex.Ordinal, &ex.CamelKey, &ex.Source); err != nil {
			return nil, fmt.Errorf("examples by key: scan: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// DeleteDocumentation removes every cached build of a documentation file.
func (s *Store) DeleteDocumentation(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete documentation: begin: %w", err)
	}
	defer tx.Rollback()
	if err := deleteDocumentationTx(tx, path); err != nil {
		return fmt.Errorf("delete documentation: %w", err)
	}
	return tx.Commit()
}

func deleteDocumentationTx(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(
		"DELETE FROM examples WHERE fragment_key IN (SELECT key FROM fragments WHERE documentation_path = ?)", path,
	); err != nil {
		return fmt.Errorf("delete examples: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM fragments WHERE documentation_path = ?", path); err != nil {
		return fmt.Errorf("delete fragments: %w", err)
	}
	return nil
}
