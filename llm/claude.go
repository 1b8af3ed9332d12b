package llm

import (
	"context"
	"strings"

	"metagen/prompt"
)

// ClaudeProvider implements the Provider interface for Anthropic Claude
type ClaudeProvider struct {
	baseProvider
	baseURL string
}

// claudeContentBlock is a content block in Claude's multimodal format
type claudeContentBlock struct {
	Type   string             `json:"type"` // "text" or "image"
	Text   string             `json:"text,omitempty"`
	Source *claudeImageSource `json:"source,omitempty"`
}

// claudeImageSource is either a base64 payload or a URL
type claudeImageSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type claudeMessage struct {
	Role    string               `json:"role"`
	Content []claudeContentBlock `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type claudeResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(cfg ProviderConfig, opts ...Option) (*ClaudeProvider, error) {
	cfg.ProviderID = ProviderClaude
	baseURL := cfg.CustomEndpoint
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 300
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}

	return &ClaudeProvider{
		baseProvider: newBaseProvider(cfg, opts),
		baseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

// GenerateAltTag sends the image followed by the instruction
func (p *ClaudeProvider) GenerateAltTag(ctx context.Context, imageURL string, cfg prompt.AltTagConfig) (*Completion, error) {
	source := &claudeImageSource{Type: "url", URL: imageURL}
	if mimeType, payload, ok := parseDataURL(imageURL); ok {
		source = &claudeImageSource{Type: "base64", MediaType: mimeType, Data: payload}
	}

	return p.send(ctx, []claudeContentBlock{
		{Type: "image", Source: source},
		{Type: "text", Text: prompt.AltTag(cfg)},
	})
}

// GenerateText sends a text-only instruction
func (p *ClaudeProvider) GenerateText(ctx context.Context, instruction string) (*Completion, error) {
	return p.send(ctx, []claudeContentBlock{{Type: "text", Text: instruction}})
}

func (p *ClaudeProvider) send(ctx context.Context, blocks []claudeContentBlock) (*Completion, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	req := claudeRequest{
		Model:       p.config.Model,
		Messages:    []claudeMessage{{Role: "user", Content: blocks}},
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}

	var resp claudeResponse
	if err := p.postJSON(ctx, p.baseURL+"/messages", p.headers(), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Content) == 0 {
		return nil, &ParseError{Provider: ProviderClaude, Message: "no content in response"}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return p.completion(sb.String(), resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens, 0)
}

// headers returns the headers Claude requires on every request
func (p *ClaudeProvider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": "2023-06-01",
	}
}
