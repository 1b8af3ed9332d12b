package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"metagen/prompt"
)

// CustomProvider talks to any OpenAI-compatible chat completions endpoint
type CustomProvider struct {
	baseProvider
	client openai.Client
}

// NewCustomProvider creates a provider for the endpoint in cfg.CustomEndpoint
func NewCustomProvider(cfg ProviderConfig, opts ...Option) (*CustomProvider, error) {
	cfg.ProviderID = ProviderCustom
	base := newBaseProvider(cfg, opts)

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(base.opts.httpClient),
		// retries are the caller's business
		option.WithMaxRetries(0),
	}
	if cfg.CustomEndpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(cfg.CustomEndpoint, "/")+"/"))
	}

	return &CustomProvider{
		baseProvider: base,
		client:       openai.NewClient(reqOpts...),
	}, nil
}

// GenerateAltTag sends the image and the assembled instruction in one message
func (p *CustomProvider) GenerateAltTag(ctx context.Context, imageURL string, cfg prompt.AltTagConfig) (*Completion, error) {
	detail := cfg.Detail
	if detail == "" {
		detail = prompt.DetailLow
	}
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt.AltTag(cfg)),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    imageURL,
			Detail: detail,
		}),
	}
	return p.chat(ctx, openai.UserMessage(parts))
}

// GenerateText sends a text-only instruction
func (p *CustomProvider) GenerateText(ctx context.Context, instruction string) (*Completion, error) {
	return p.chat(ctx, openai.UserMessage(instruction))
}

func (p *CustomProvider) chat(ctx context.Context, msg openai.ChatCompletionMessageParamUnion) (*Completion, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{msg},
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.config.MaxTokens))
	}
	params.Temperature = openai.Float(p.config.Temperature)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = errorMessageFromBody([]byte(apiErr.RawJSON()))
			}
			return nil, &BackendError{Provider: ProviderCustom, StatusCode: apiErr.StatusCode, Message: msg, Err: err}
		}
		return nil, p.transportError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ParseError{Provider: ProviderCustom, Message: "no choices in response"}
	}

	return p.completion(
		resp.Choices[0].Message.Content,
		resp.Model,
		int(resp.Usage.PromptTokens),
		int(resp.Usage.CompletionTokens),
		int(resp.Usage.TotalTokens),
	)
}
