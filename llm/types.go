package llm

import (
	"context"
	"time"

	"metagen/prompt"
)

// OperationKind identifies the generation task a call belongs to
type OperationKind string

const (
	OpAltTag         OperationKind = "alt_tag"
	OpSeoTitle       OperationKind = "seo_title"
	OpSeoDescription OperationKind = "seo_description"
	OpIconMetadata   OperationKind = "icon_metadata"
)

// DefaultTimeout applies when a config carries no timeout
const DefaultTimeout = 30 * time.Second

// ProviderConfig is built per generation call from the global settings
type ProviderConfig struct {
	ProviderID     string  `json:"provider_id"`
	APIKey         string  `json:"-"`
	Model          string  `json:"model"`
	CustomEndpoint string  `json:"custom_endpoint,omitempty"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// Timeout returns the per-call deadline for outbound requests
func (c ProviderConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Completion is the raw outcome of one backend call
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	TokensUsed   int
}

// Provider is the capability set every backend satisfies. Orchestrators only
// ever reach a Provider through a Registry.
type Provider interface {
	// Name returns the provider id
	Name() string

	// GenerateAltTag describes the image at imageURL using a multimodal request
	GenerateAltTag(ctx context.Context, imageURL string, cfg prompt.AltTagConfig) (*Completion, error)

	// GenerateText sends a text-only instruction and returns the answer
	GenerateText(ctx context.Context, instruction string) (*Completion, error)

	// ValidateConfig reports whether cfg can be used with this backend
	ValidateConfig(cfg ProviderConfig) error

	// EstimateCost returns the estimated cost in USD of an operation.
	// When tokens is zero a typical token count for the operation is assumed.
	EstimateCost(op OperationKind, tokens int) float64
}

// Logger receives non-fatal provider warnings
type Logger interface {
	Warn(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...interface{}) {}
