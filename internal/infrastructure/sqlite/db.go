// Package sqlite provides the SQLite-backed snapshot store.
package sqlite

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// schemaVersion is the current database schema version, tracked with
// PRAGMA user_version.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	guild_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	phase TEXT NOT NULL,
	focus_seconds INTEGER NOT NULL,
	short_break_seconds INTEGER NOT NULL,
	long_break_seconds INTEGER NOT NULL,
	intervals INTEGER NOT NULL,
	work_units_completed INTEGER NOT NULL DEFAULT 0,
	work_units_elapsed INTEGER NOT NULL DEFAULT 0,
	work_seconds_completed INTEGER NOT NULL DEFAULT 0,
	timer_remaining_ms INTEGER NOT NULL,
	timer_running INTEGER NOT NULL DEFAULT 0,
	timer_end INTEGER,
	idle_deadline INTEGER,
	epoch INTEGER NOT NULL DEFAULT 0,
	saved_at INTEGER NOT NULL,
	version INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);
`

// DB wraps the snapshot database connection.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (or creates) the snapshot database at the given path.
// Parent directories are created as needed, WAL mode and foreign keys are
// enabled, and the schema is applied. An existing database file is backed up
// to path+".bak" before any schema change.
func NewDB(path string) (*DB, error) {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	if _, err := os.Stat(cleanPath); err == nil {
		if err := backupFile(cleanPath); err != nil {
			return nil, fmt.Errorf("backup database: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", "file:"+cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn, path: cleanPath}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// migrate applies the schema when the stored user_version is behind.
func (d *DB) migrate() error {
	var current int
	if err := d.conn.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := d.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// backupFile copies path to path+".bak", replacing any previous backup.
func backupFile(path string) error {
	src, err := os.Open(path) // #nosec G304 -- path is cleaned by the caller
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".bak", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
