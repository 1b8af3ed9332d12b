package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	// fts is false when the driver was built without FTS5
	fts bool
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(1) // SQLite works best with single connection
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn}

	// Run migrations
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// HasFullTextSearch reports whether searches use the FTS5 index
func (db *DB) HasFullTextSearch() bool {
	return db.fts
}

// migrate runs database migrations
func (db *DB) migrate() error {
	migrations := []string{
		// Audit log table
		`CREATE TABLE IF NOT EXISTS audit_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			operation TEXT NOT NULL,
			provider TEXT DEFAULT '',
			model TEXT DEFAULT '',
			success INTEGER NOT NULL DEFAULT 0,
			tokens_used INTEGER DEFAULT 0,
			cost REAL DEFAULT 0,
			duration_ms INTEGER DEFAULT 0,
			input_excerpt TEXT DEFAULT '',
			output TEXT DEFAULT '',
			error TEXT DEFAULT '',
			actor TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better performance
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_operation ON audit_logs(operation, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_provider_model ON audit_logs(provider, model)`,
	}

	for _, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return db.migrateFullText()
}

// migrateFullText creates the FTS5 index over outputs and excerpts. A driver
// without FTS5 support is not an error: search falls back to LIKE.
func (db *DB) migrateFullText() error {
	ftsMigrations := []string{
		// FTS5 virtual table for full-text search
		`CREATE VIRTUAL TABLE IF NOT EXISTS audit_logs_fts USING fts5(
			output,
			input_excerpt,
			content=audit_logs,
			content_rowid=seq
		)`,

		// Triggers to keep FTS in sync
		`CREATE TRIGGER IF NOT EXISTS audit_logs_ai AFTER INSERT ON audit_logs BEGIN
			INSERT INTO audit_logs_fts(rowid, output, input_excerpt)
			VALUES (new.seq, new.output, new.input_excerpt);
		END`,

		`CREATE TRIGGER IF NOT EXISTS audit_logs_ad AFTER DELETE ON audit_logs BEGIN
			INSERT INTO audit_logs_fts(audit_logs_fts, rowid, output, input_excerpt)
			VALUES ('delete', old.seq, old.output, old.input_excerpt);
		END`,
	}

	for i, migration := range ftsMigrations {
		if _, err := db.conn.Exec(migration); err != nil {
			if i == 0 && strings.Contains(err.Error(), "no such module") {
				db.fts = false
				return nil
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}
	db.fts = true
	return nil
}

// DBStats represents database statistics
type DBStats struct {
	AuditEntryCount int64
	DBSizeBytes     int64
}

// GetStats returns database statistics
func (db *DB) GetStats() (*DBStats, error) {
	stats := &DBStats{}

	err := db.conn.QueryRow("SELECT COUNT(*) FROM audit_logs").Scan(&stats.AuditEntryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit entries: %w", err)
	}

	// Get database size (page_count * page_size)
	var pageCount, pageSize int64
	err = db.conn.QueryRow("PRAGMA page_count").Scan(&pageCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	err = db.conn.QueryRow("PRAGMA page_size").Scan(&pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}

	stats.DBSizeBytes = pageCount * pageSize

	return stats, nil
}

// Vacuum optimizes the database file
func (db *DB) Vacuum() error {
	_, err := db.conn.Exec("VACUUM")
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
