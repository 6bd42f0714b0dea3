package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite cache of built fragments.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fragments (
  key                TEXT PRIMARY KEY,
  documentation_path TEXT NOT NULL,
  companion_path     TEXT,
  unit_import_path   TEXT,
  fragment           TEXT NOT NULL,
  built_at           TIMESTAMP
);

CREATE TABLE IF NOT EXISTS examples (
  id              INTEGER PRIMARY KEY,
  fragment_key    TEXT NOT NULL REFERENCES fragments(key) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  camel_key       TEXT NOT NULL,
  source          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fragments_documentation ON fragments(documentation_path);
CREATE INDEX IF NOT EXISTS idx_examples_fragment ON examples(fragment_key);
CREATE INDEX IF NOT EXISTS idx_examples_camel_key ON examples(camel_key);
`

// Metadata returns the value stored under key, or "" when absent.
func (s *Store) Metadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata upserts a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

// Reset drops every cached fragment, keeping metadata.
func (s *Store) Reset() error {
	if _, err := s.db.Exec("DELETE FROM examples; DELETE FROM fragments;"); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
