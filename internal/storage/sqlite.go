package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
)

const slotSchema = `CREATE TABLE IF NOT EXISTS slots (
	name       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

// SQLiteSlot stores the sequence as one JSON payload row in a key/value table.
type SQLiteSlot struct {
	path string
	name string
	db   *sql.DB
}

// OpenSQLiteSlot opens (and creates if needed) the database at path and
// returns the slot called name inside it.
func OpenSQLiteSlot(path, name string) (*SQLiteSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writes ordered.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(slotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create slots table: %w", err)
	}
	return &SQLiteSlot{path: path, name: name, db: db}, nil
}

// Path returns the database file path.
func (s *SQLiteSlot) Path() string { return s.path }

func (s *SQLiteSlot) Read() ([]model.Entry, bool, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM slots WHERE name = ?", s.name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage error reading slot %q: %w", s.name, err)
	}
	entries, err := decode([]byte(payload))
	if err != nil {
		return nil, false, fmt.Errorf("%w: slot %q in %s: %v", ErrCorrupt, s.name, s.path, err)
	}
	return entries, true, nil
}

func (s *SQLiteSlot) Write(entries []model.Entry) error {
	data, err := encode(entries)
	if err != nil {
		return err
	}
	const q = `INSERT INTO slots (name, payload) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET
  payload = excluded.payload,
  updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
	if _, err := s.db.Exec(q, s.name, string(data)); err != nil {
		return fmt.Errorf("storage error writing slot %q: %w", s.name, err)
	}
	return nil
}

func (s *SQLiteSlot) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
