package db

import "time"

// AuditEntry is one persisted generation attempt
type AuditEntry struct {
	ID           string    `json:"id"`
	Operation    string    `json:"operation"` // "alt_tag", "seo_title", ...
	Provider     string    `json:"provider"`  // "openai", "claude", etc.
	Model        string    `json:"model"`
	Success      bool      `json:"success"`
	TokensUsed   int       `json:"tokens_used"`
	Cost         float64   `json:"cost"` // USD
	DurationMs   int64     `json:"duration_ms"`
	InputExcerpt string    `json:"input_excerpt"`
	Output       string    `json:"output"`
	Error        string    `json:"error,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditFilter narrows ListAuditEntries. Zero values match everything.
type AuditFilter struct {
	Operation string
	Provider  string
	Success   *bool
	Since     time.Time
	Limit     int
	Offset    int
}
