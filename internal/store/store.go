// Package store persists snapshots of the summary graph in SQLite so an
// index survives restarts. Every summary below a file is one row in the
// summaries table, linked to its owner through parent_id.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for arbor snapshots.
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

// DB returns the underlying *sql.DB for use in transactions.
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
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  package         TEXT NOT NULL DEFAULT '',
  mod_time        INTEGER NOT NULL DEFAULT 0,
  start_line      INTEGER,
  end_line        INTEGER,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS summaries (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  parent_id       INTEGER REFERENCES summaries(id),
  kind            TEXT NOT NULL,
  role            TEXT NOT NULL DEFAULT '',
  name            TEXT NOT NULL DEFAULT '',
  package         TEXT NOT NULL DEFAULT '',
  object          TEXT NOT NULL DEFAULT '',
  flavor          TEXT NOT NULL DEFAULT '',
  flag            BOOLEAN DEFAULT FALSE,
  rank            INTEGER DEFAULT 0,
  modifiers       TEXT,
  statements      INTEGER DEFAULT 0,
  max_depth       INTEGER DEFAULT 0,
  start_line      INTEGER,
  decl_line       INTEGER,
  end_line        INTEGER,
  signature_hash  TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_package ON files(package);
CREATE INDEX IF NOT EXISTS idx_summaries_file ON summaries(file_id);
CREATE INDEX IF NOT EXISTS idx_summaries_parent ON summaries(parent_id);
CREATE INDEX IF NOT EXISTS idx_summaries_kind ON summaries(kind);
CREATE INDEX IF NOT EXISTS idx_summaries_name ON summaries(name);
CREATE INDEX IF NOT EXISTS idx_summaries_hash ON summaries(signature_hash);
`

// DeleteFileData transactionally removes a file and all of its summaries.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileTx(tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteFileTx(tx *sql.Tx, fileID int64) error {
	if _, err := tx.Exec("DELETE FROM summaries WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete summaries: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

func deletePathsTx(tx *sql.Tx, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	rows, err := tx.Query("SELECT id FROM files WHERE path IN ("+placeholderList(len(paths))+")", stringsToArgs(paths)...)
	if err != nil {
		return fmt.Errorf("query files: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan file id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	for _, id := range ids {
		if err := deleteFileTx(tx, id); err != nil {
			return err
		}
	}
	return nil
}

// Clear deletes every file and summary. Metadata is kept.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := clearTx(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTx(tx *sql.Tx) error {
	for _, q := range []string{"DELETE FROM summaries", "DELETE FROM files"} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}
	return nil
}

// GetMetadata returns the value stored under key, or "" when unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return v, nil
}

// SetMetadata stores value under key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
