// Package store persists calendar events in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"calingest/internal/models"
)

// "end" is a keyword in SQLite and stays quoted throughout.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	calendar_id TEXT,
	summary TEXT,
	description TEXT,
	start TEXT,
	"end" TEXT,
	created TEXT,
	updated TEXT,
	location TEXT,
	raw TEXT
);
`

const upsertSQL = `
INSERT INTO events (id, calendar_id, summary, description, start, "end", created, updated, location, raw)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	calendar_id = excluded.calendar_id,
	summary = excluded.summary,
	description = excluded.description,
	start = excluded.start,
	"end" = excluded."end",
	created = excluded.created,
	updated = excluded.updated,
	location = excluded.location,
	raw = excluded.raw
`

// Store wraps the events database.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating it and the events table if
// absent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// Single connection; SQLite reports "database is locked" otherwise.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertEvents merges events into the table inside a single
// transaction committed once: either every row lands or none do. A row
// whose id already exists is overwritten column for column.
func (s *Store) UpsertEvents(ctx context.Context, events []models.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.ExecContext(ctx,
			e.ID, e.CalendarID, e.Summary, e.Description,
			e.Start, e.End, e.Created, e.Updated, e.Location, e.Raw)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// CountEvents reports the total number of stored rows.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// ListEvents returns every stored event ordered by start time, then id,
// for deterministic output.
func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, calendar_id, summary, description, start, "end", created, updated, location, raw
		FROM events
		ORDER BY start, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		err := rows.Scan(&e.ID, &e.CalendarID, &e.Summary, &e.Description,
			&e.Start, &e.End, &e.Created, &e.Updated, &e.Location, &e.Raw)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
