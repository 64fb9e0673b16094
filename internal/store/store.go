// Package store provides the local durable storage for the pipeline: the
// argument-keyed memo cache fronting external calls, and the run history.
package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the memo cache and run history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS memo (
	op         TEXT NOT NULL,
	args_hash  TEXT NOT NULL,
	result     BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (op, args_hash)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	campaign    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	stats       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_campaign ON runs(campaign);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
