// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure-Go translation of SQLite — no CGo, so the
// binary cross-compiles anywhere Go runs. The database is a single file
// (or ":memory:" in tests), which keeps the service deployable as one
// artifact with no external store to provision.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool and carries the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, configures it, and runs migrations.
// Use ":memory:" for an ephemeral database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and with ":memory:" every pool
	// connection would otherwise open its own empty database. One
	// connection serves both cases correctly.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — without it the
	// whole file locks on every write, which a web server cannot afford.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
//
// COLLATE NOCASE on username and email makes both the UNIQUE constraints and
// equality lookups case-insensitive at the storage level, so "Alice" and
// "alice" can never coexist and either form finds the row.
//
// preferred_languages is stored as a JSON array in a TEXT column; the list
// is small (≤20 short strings), always read and written whole, and never
// queried by element, so a join table would buy nothing.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                      TEXT PRIMARY KEY,
			username                TEXT NOT NULL UNIQUE COLLATE NOCASE,
			display_name            TEXT NOT NULL DEFAULT '',
			email                   TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash           TEXT NOT NULL,
			role                    TEXT NOT NULL DEFAULT 'user',
			preferred_languages     TEXT NOT NULL DEFAULT '[]',
			skill_level             TEXT NOT NULL DEFAULT 'beginner',
			refresh_token_hash      TEXT,
			refresh_token_issued_at DATETIME,
			created_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	return nil
}
