// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local SQLite ledger of terminal conversion
// outcomes. It is bookkeeping only; nothing in the workflow depends on it,
// and callers may run without a store.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mineru-bridge/pkg/types"
)

const dbFile = "history.db"

// Store manages the conversion history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at dir/history.db, creating
// the directory and schema as needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name TEXT NOT NULL,
		task_id TEXT,
		outcome TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Record appends one terminal conversion outcome. A zero CreatedAt is
// filled with the current time.
func (s *Store) Record(rec types.ConversionRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO conversions (file_name, task_id, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.FileName, rec.TaskID, string(rec.Outcome), rec.Error,
		rec.Duration.Milliseconds(), created.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting conversion record: %w", err)
	}
	return nil
}

// Recent returns the newest n records, most recent first.
func (s *Store) Recent(n int) ([]types.ConversionRecord, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.Query(
		`SELECT file_name, task_id, outcome, error, duration_ms, created_at
		 FROM conversions ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var records []types.ConversionRecord
	for rows.Next() {
		var rec types.ConversionRecord
		var durationMS int64
		var created string
		if err := rows.Scan(&rec.FileName, &rec.TaskID, (*string)(&rec.Outcome), &rec.Error, &durationMS, &created); err != nil {
			return nil, fmt.Errorf("scanning conversion record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if t, parseErr := time.Parse(time.RFC3339, created); parseErr == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
