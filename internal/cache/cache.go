// Package cache keeps the last-known-good copy of remote records and the
// local user preferences in SQLite.
package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	collection     TEXT NOT NULL,
	id             TEXT NOT NULL,
	author         TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL DEFAULT '',
	image_filename TEXT NOT NULL DEFAULT '',
	timestamp      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_records_image ON records(collection, image_filename);

CREATE TABLE IF NOT EXISTS prefs (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with cache operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
