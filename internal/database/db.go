package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the archive database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode for better concurrency between the API and the run jobs
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the archive schema if it does not exist yet.
// The archive is append-only: rows are inserted when a port call closes
// and never updated afterwards.
func (db *DB) Migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS port_calls (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			vessel_id       TEXT NOT NULL,
			vessel_name     TEXT NOT NULL,
			port_code       TEXT NOT NULL,
			agent           TEXT NOT NULL,
			anchorage_hours REAL NOT NULL CHECK (anchorage_hours >= 0),
			berth_hours     REAL NOT NULL CHECK (berth_hours >= 0),
			grade           TEXT NOT NULL,
			closure         TEXT NOT NULL DEFAULT 'completed',
			completed_at    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_port_calls_completed_at ON port_calls(completed_at);
		CREATE INDEX IF NOT EXISTS idx_port_calls_agent ON port_calls(agent);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_port_calls_call ON port_calls(vessel_id, completed_at);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate archive schema: %w", err)
	}

	return nil
}
