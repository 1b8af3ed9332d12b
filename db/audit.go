package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const auditColumns = "id, operation, provider, model, success, tokens_used, cost, duration_ms, input_excerpt, output, error, actor, created_at"

// DefaultListLimit caps list queries without an explicit limit
const DefaultListLimit = 100

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditEntry(s scanner, extra ...interface{}) (*AuditEntry, error) {
	var e AuditEntry
	dest := []interface{}{
		&e.ID, &e.Operation, &e.Provider, &e.Model, &e.Success, &e.TokensUsed, &e.Cost,
		&e.DurationMs, &e.InputExcerpt, &e.Output, &e.Error, &e.Actor, &e.CreatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateAuditEntry stores entry, assigning an id and timestamp when unset
func (db *DB) CreateAuditEntry(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO audit_logs ("+auditColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.Operation, entry.Provider, entry.Model, entry.Success, entry.TokensUsed, entry.Cost,
		entry.DurationMs, entry.InputExcerpt, entry.Output, entry.Error, entry.Actor, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// GetAuditEntry retrieves an audit entry by ID
func (db *DB) GetAuditEntry(id string) (*AuditEntry, error) {
	entry, err := scanAuditEntry(db.conn.QueryRow(
		"SELECT "+auditColumns+" FROM audit_logs WHERE id = ?", id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	return entry, nil
}

// ListAuditEntries retrieves audit entries, newest first
func (db *DB) ListAuditEntries(filter AuditFilter) ([]*AuditEntry, error) {
	var where []string
	var args []interface{}

	if filter.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Success != nil {
		where = append(where, "success = ?")
		args = append(args, *filter.Success)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := "SELECT " + auditColumns + " FROM audit_logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += " ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}

// PruneAuditEntries deletes entries older than the retention window
func (db *DB) PruneAuditEntries(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	result, err := db.conn.Exec("DELETE FROM audit_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
