// Package prompt holds the per-task generation configs and assembles the
// instruction strings sent to backends.
package prompt

import "metagen/content"

// Priority decides where keywords go in an SEO prompt
type Priority string

const (
	PriorityKeywords Priority = "keywords"
	PriorityContent  Priority = "content"
	PriorityBalanced Priority = "balanced"
)

// Detail levels accepted by vision backends
const (
	DetailLow  = "low"
	DetailHigh = "high"
	DetailAuto = "auto"
)

// PageContext is the structured context an alt-tag prompt may include
type PageContext struct {
	PageTitle string   `json:"pageTitle,omitempty"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// AltTagConfig configures one alt-tag generation
type AltTagConfig struct {
	SystemPrimer   string
	MaxLength      int
	IncludeContext bool
	Context        *PageContext
	Detail         string
}

// SeoTitleConfig configures one SEO title generation. MaxLength is the room
// left for the model; a brand suffix is budgeted by the caller.
type SeoTitleConfig struct {
	SystemPrimer string
	MaxLength    int
	Keywords     []string
	Priority     Priority
	Guidance     string
	Context      content.ContentContext
}

// SeoDescriptionConfig configures one SEO description generation
type SeoDescriptionConfig struct {
	SystemPrimer string
	MinLength    int
	MaxLength    int
	Keywords     []string
	Priority     Priority
	Guidance     string
	Context      content.ContentContext
}

// IconMetadataConfig configures one icon label generation
type IconMetadataConfig struct {
	SystemPrimer string
	MaxLength    int
	IconName     string
	Keywords     []string
	Usage        string
}
