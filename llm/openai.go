package llm

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"metagen/prompt"
)

// visionModels are the OpenAI models known to accept image input
var visionModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-4-vision-preview",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4.1-nano",
}

// OpenAIProvider implements the Provider interface for OpenAI
type OpenAIProvider struct {
	baseProvider
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg ProviderConfig, opts ...Option) (*OpenAIProvider, error) {
	cfg.ProviderID = ProviderOpenAI
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	base := newBaseProvider(cfg, opts)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.CustomEndpoint != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.CustomEndpoint, "/")
	}
	clientConfig.HTTPClient = base.opts.httpClient

	return &OpenAIProvider{
		baseProvider: base,
		client:       openai.NewClientWithConfig(clientConfig),
	}, nil
}

// ValidateConfig applies the base rules, then checks the key format. A model
// outside the vision allow-list only produces a warning.
func (p *OpenAIProvider) ValidateConfig(cfg ProviderConfig) error {
	if err := ValidateBaseConfig(cfg); err != nil {
		return err
	}
	if !strings.HasPrefix(cfg.APIKey, "sk-") {
		return &ConfigurationError{Provider: ProviderOpenAI, Message: "API key must start with \"sk-\""}
	}
	if !isVisionModel(cfg.Model) {
		p.opts.logger.Warn("Model %s is not a known vision-capable model; alt text generation may fail", cfg.Model)
	}
	return nil
}

// GenerateAltTag sends the image and the assembled instruction in one message
func (p *OpenAIProvider) GenerateAltTag(ctx context.Context, imageURL string, cfg prompt.AltTagConfig) (*Completion, error) {
	detail := cfg.Detail
	if detail == "" {
		detail = prompt.DetailLow
	}

	return p.chat(ctx, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: prompt.AltTag(cfg),
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL,
					Detail: openai.ImageURLDetail(detail),
				},
			},
		},
	})
}

// GenerateText sends a text-only instruction
func (p *OpenAIProvider) GenerateText(ctx context.Context, instruction string) (*Completion, error) {
	return p.chat(ctx, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: instruction,
	})
}

func (p *OpenAIProvider) chat(ctx context.Context, msg openai.ChatCompletionMessage) (*Completion, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    []openai.ChatCompletionMessage{msg},
		MaxTokens:   p.config.MaxTokens,
		Temperature: openAITemperature(p.config.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.mapError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ParseError{Provider: ProviderOpenAI, Message: "no choices in response"}
	}

	return p.completion(
		resp.Choices[0].Message.Content,
		resp.Model,
		resp.Usage.PromptTokens,
		resp.Usage.CompletionTokens,
		resp.Usage.TotalTokens,
	)
}

// mapError converts go-openai errors into the package taxonomy
func (p *OpenAIProvider) mapError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = "request failed"
		}
		return &BackendError{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Message: msg, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &BackendError{
			Provider:   ProviderOpenAI,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    errorMessageFromBody([]byte(reqErr.Err.Error())),
			Err:        err,
		}
	}

	return p.transportError(ctx, err)
}

func isVisionModel(model string) bool {
	model = strings.ToLower(strings.TrimSpace(model))
	for _, m := range visionModels {
		if model == m {
			return true
		}
	}
	return false
}

// openAITemperature maps 0 to the smallest positive float32: go-openai omits a
// zero temperature and the API would then apply its own default of 1
func openAITemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
