package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// baseProvider carries the config and helpers shared by every backend.
// Concrete providers embed it and may override ValidateConfig.
type baseProvider struct {
	config ProviderConfig
	opts   options
}

func newBaseProvider(cfg ProviderConfig, opts []Option) baseProvider {
	return baseProvider{config: cfg, opts: buildOptions(opts)}
}

// Name returns the provider id
func (b *baseProvider) Name() string {
	return b.config.ProviderID
}

// ValidateConfig applies the base validation contract
func (b *baseProvider) ValidateConfig(cfg ProviderConfig) error {
	return ValidateBaseConfig(cfg)
}

// EstimateCost prices an operation with this provider's model
func (b *baseProvider) EstimateCost(op OperationKind, tokens int) float64 {
	if tokens <= 0 {
		tokens = typicalTokens(op)
	}
	return CalculateCost(b.config.ProviderID, b.config.Model, tokens)
}

// withTimeout bounds ctx by the configured per-call timeout
func (b *baseProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.config.Timeout())
}

// transportError converts a failed request into a BackendError, flagging timeouts
func (b *baseProvider) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &BackendError{
			Provider: b.config.ProviderID,
			Message:  fmt.Sprintf("request timed out after %s", b.config.Timeout()),
			Timeout:  true,
			Err:      err,
		}
	}
	return &BackendError{
		Provider: b.config.ProviderID,
		Message:  fmt.Sprintf("failed to send request: %v", err),
		Err:      err,
	}
}

// completion builds a Completion, rejecting empty answers
func (b *baseProvider) completion(text, model string, in, out, total int) (*Completion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &BackendError{Provider: b.config.ProviderID, Message: "empty content in response"}
	}
	if model == "" {
		model = b.config.Model
	}
	if total == 0 {
		total = in + out
	}
	return &Completion{
		Text:         text,
		Model:        model,
		InputTokens:  in,
		OutputTokens: out,
		TokensUsed:   total,
	}, nil
}

// ValidateBaseConfig checks the fields every backend needs: an API key, a
// model, and a custom endpoint when the custom provider is selected.
func ValidateBaseConfig(cfg ProviderConfig) error {
	id := normalizeID(cfg.ProviderID)
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &ConfigurationError{Provider: id, Message: "API key is required"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return &ConfigurationError{Provider: id, Message: "model is required"}
	}
	if id == ProviderCustom && strings.TrimSpace(cfg.CustomEndpoint) == "" {
		return &ConfigurationError{Provider: id, Message: "custom endpoint is required for the custom provider"}
	}
	return nil
}
