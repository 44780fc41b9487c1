// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - A starter skeleton that should run with zero infrastructure
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql" — a generic interface for SQL databases.
// It works with any database through "drivers" (SQLite, Postgres, MySQL, etc.).
// Key types:
//   - sql.DB      — a connection pool (NOT a single connection!)
//   - sql.Row     — a single result row
//   - sql.Rows    — multiple result rows (must be closed!)
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
//
// Every statement in this package is parameterized — values are bound with
// ? placeholders, never concatenated into the SQL text.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ayutenn/skeleton/internal/auth"

	// BLANK IMPORT:
	// The sqlite package's init() function registers itself with database/sql
	// as a driver named "sqlite". After this import, sql.Open("sqlite", ...)
	// knows how to talk to SQLite. This is Go's plugin pattern — database
	// drivers register themselves at init time.
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
//
// WHY WRAP sql.DB IN A STRUCT?
// 1. We can attach methods to it (Create, GetByID, etc.)
// 2. We can carry extra dependencies (the password hasher)
// 3. It implements the repository interfaces from repository.go
// 4. We control the lifecycle (New creates it, Close destroys it)
//
// The password hasher lives here because the store — not its callers — is
// responsible for turning a clear-text password into a salted hash before
// anything touches disk. Clear text never leaves Create's stack frame.
type DB struct {
	conn      *sql.DB
	passwords *auth.PasswordService
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/skeleton.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection — it just creates a pool
// manager. We call conn.Ping() to force an immediate connection and verify
// it works, so a bad path surfaces here instead of on the first query.
func New(dbPath string, passwords *auth.PasswordService) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" opens its OWN private database,
	// so a second connection would see no tables. One connection total
	// keeps the in-memory database coherent.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes.
	// WAL mode allows concurrent reads WHILE a write is happening.
	// This matters for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, passwords: passwords}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
// Wherever you call New(), immediately defer Close(). This ensures the
// connection is cleaned up even if a panic occurs.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// MIGRATIONS IN PRODUCTION:
// For a starter skeleton, embedding SQL as string constants is fine.
// In production, you'd use golang-migrate which tracks which migrations
// have run. CREATE TABLE IF NOT EXISTS is safe — it won't error if the
// table exists.
func (db *DB) migrate() error {
	// The `user` table. Soft deletion means rows are never removed, so the
	// uniqueness rule is "one NON-DELETED row per user_id" — a plain UNIQUE
	// column would forbid re-registering an id after its owner was deleted.
	// A partial unique index expresses the real invariant, and doubles as
	// the authoritative duplicate check: a concurrent second INSERT loses
	// with SQLITE_CONSTRAINT_UNIQUE no matter how the pre-check raced.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user (
			user_id    TEXT NOT NULL,
			user_name  TEXT NOT NULL,
			profile    TEXT NOT NULL DEFAULT '',
			password   TEXT NOT NULL,
			last_login DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			on_create  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			on_update  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_deleted INTEGER NOT NULL DEFAULT 0
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_user_active_user_id
			ON user(user_id) WHERE is_deleted = 0;
		CREATE INDEX IF NOT EXISTS idx_user_user_id ON user(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating user table: %w", err)
	}

	// Server-side sessions. Flash messages and retained form values are
	// stored as JSON blobs inside the row — they live and die with the
	// session, so they don't warrant tables of their own.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			flash      TEXT NOT NULL DEFAULT '[]',
			retained   TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite telling us a UNIQUE (or
// primary key) constraint was hit. modernc.org/sqlite exposes the extended
// result code on its error type; the constants live in modernc.org/sqlite/lib.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
