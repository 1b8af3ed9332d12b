package generator

// Metadata describes how a result was produced
type Metadata struct {
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	TokensUsed     int      `json:"tokensUsed,omitempty"`
	Cost           float64  `json:"cost,omitempty"`
	DurationMs     int64    `json:"durationMs"`
	Timestamp      string   `json:"timestamp"` // RFC 3339
	CharacterCount int      `json:"characterCount,omitempty"`
	KeywordsUsed   []string `json:"keywordsUsed,omitempty"`
}

// GenerationResult is returned by the SEO and icon orchestrators. On
// failure Text is always empty and Error says why.
type GenerationResult struct {
	Text     string    `json:"text"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// AltTagResult is returned by the alt-tag orchestrator. When generation
// fails AltText holds the filename fallback (or ""), Fallback reports
// whether the fallback was used and Error keeps the original failure.
type AltTagResult struct {
	AltText  string    `json:"altText"`
	Success  bool      `json:"success"`
	Fallback bool      `json:"fallback,omitempty"`
	Error    string    `json:"error,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}
