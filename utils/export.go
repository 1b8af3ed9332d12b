package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"metagen/db"
)

// ExportFormat represents the export format
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "markdown"
)

// ParseExportFormat maps "json", "md" and "markdown" to a format
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// AuditExport is the JSON export document
type AuditExport struct {
	Metadata map[string]string `json:"metadata"`
	Entries  []*db.AuditEntry  `json:"entries"`
}

// ExportAuditEntries writes the entries matching filter to path
func ExportAuditEntries(database *db.DB, filter db.AuditFilter, format ExportFormat, path string) (int, error) {
	entries, err := database.ListAuditEntries(filter)
	if err != nil {
		return 0, fmt.Errorf("failed to list audit entries: %w", err)
	}

	var data []byte
	switch format {
	case FormatMarkdown:
		data = []byte(RenderAuditMarkdown(entries))
	default:
		data, err = RenderAuditJSON(entries)
		if err != nil {
			return 0, err
		}
	}

	if err := WriteFileContent(path, data); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// RenderAuditJSON renders entries as an indented JSON document with metadata
func RenderAuditJSON(entries []*db.AuditEntry) ([]byte, error) {
	if entries == nil {
		entries = []*db.AuditEntry{}
	}
	export := AuditExport{
		Metadata: map[string]string{
			"export_version": "1.0",
			"export_date":    time.Now().Format(time.RFC3339),
			"app_name":       "metagen",
			"total_count":    fmt.Sprintf("%d", len(entries)),
		},
		Entries: entries,
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// RenderAuditMarkdown renders entries as a Markdown report
func RenderAuditMarkdown(entries []*db.AuditEntry) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Generation Audit Log\n\n")

	var totalCost float64
	var failed int
	for _, e := range entries {
		totalCost += e.Cost
		if !e.Success {
			failed++
		}
	}
	sb.WriteString(fmt.Sprintf("**Entries**: %d (%d failed)\n", len(entries), failed))
	sb.WriteString(fmt.Sprintf("**Total cost**: $%.6f\n\n", totalCost))
	sb.WriteString("---\n\n")

	for i, e := range entries {
		status := "✅"
		if !e.Success {
			status = "❌"
		}
		sb.WriteString(fmt.Sprintf("## %s %s\n\n", status, e.Operation))
		sb.WriteString(fmt.Sprintf("*%s - %s - %s*\n\n", e.Provider, e.Model, e.CreatedAt.Format("2006-01-02 15:04:05")))
		sb.WriteString(fmt.Sprintf("- Tokens: %d\n- Cost: $%.6f\n- Duration: %dms\n", e.TokensUsed, e.Cost, e.DurationMs))
		if e.Actor != "" {
			sb.WriteString(fmt.Sprintf("- Actor: %s\n", e.Actor))
		}
		sb.WriteString("\n")

		if e.InputExcerpt != "" {
			sb.WriteString("**Input**\n\n> ")
			sb.WriteString(strings.ReplaceAll(e.InputExcerpt, "\n", "\n> "))
			sb.WriteString("\n\n")
		}
		if e.Success {
			sb.WriteString("**Output**: " + e.Output + "\n\n")
		} else {
			sb.WriteString("**Error**: " + e.Error + "\n\n")
		}

		// Separator (except for last entry)
		if i < len(entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported: %s*\n", time.Now().Format("2006-01-02 15:04:05")))

	return sb.String()
}

// GenerateExportFilename generates a filename for export
func GenerateExportFilename(title string, format ExportFormat) string {
	// Sanitize title for filename
	sanitized := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' {
			return '_'
		}
		return r
	}, title)

	// Truncate if too long
	if runes := []rune(sanitized); len(runes) > 50 {
		sanitized = string(runes[:50])
	}

	// Add timestamp and extension
	timestamp := time.Now().Format("20060102_150405")
	ext := string(format)
	if format == FormatMarkdown {
		ext = "md"
	}

	return fmt.Sprintf("%s_%s.%s", sanitized, timestamp, ext)
}

// GetDefaultExportPath returns the default export directory
func GetDefaultExportPath() (string, error) {
	exportDir := filepath.Join(".", "exports")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return "", err
	}

	return exportDir, nil
}
