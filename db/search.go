package db

import (
	"fmt"
	"strings"
)

// SearchResult represents a search result
type SearchResult struct {
	Entry   *AuditEntry
	Snippet string
}

// SearchAuditEntries performs full-text search over outputs and input excerpts
func (db *DB) SearchAuditEntries(query string, limit int) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if !db.fts {
		return db.searchLike(query, limit)
	}

	rows, err := db.conn.Query(`
		SELECT a.`+strings.ReplaceAll(auditColumns, ", ", ", a.")+`,
		       snippet(audit_logs_fts, 0, '<mark>', '</mark>', '...', 32) as snippet
		FROM audit_logs_fts
		JOIN audit_logs a ON audit_logs_fts.rowid = a.seq
		WHERE audit_logs_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit entries: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		var snippet string
		entry, err := scanAuditEntry(rows, &snippet)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, &SearchResult{Entry: entry, Snippet: snippet})
	}

	return results, nil
}

// searchLike is the substring search used without FTS5
func (db *DB) searchLike(query string, limit int) ([]*SearchResult, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(
		"SELECT "+auditColumns+" FROM audit_logs WHERE output LIKE ? OR input_excerpt LIKE ? ORDER BY created_at DESC LIMIT ?",
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit entries: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, &SearchResult{Entry: entry, Snippet: entry.Output})
	}

	return results, nil
}

// ftsQuery quotes every term so user input cannot break the MATCH syntax
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
