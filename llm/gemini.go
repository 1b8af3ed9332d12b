package llm

import (
	"context"
	"net/url"
	"strings"

	"metagen/prompt"
)

// GeminiProvider implements the Provider interface for Google Gemini
type GeminiProvider struct {
	baseProvider
	baseURL string
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(cfg ProviderConfig, opts ...Option) (*GeminiProvider, error) {
	cfg.ProviderID = ProviderGemini
	baseURL := cfg.CustomEndpoint
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	return &GeminiProvider{
		baseProvider: newBaseProvider(cfg, opts),
		baseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

// GenerateAltTag inlines the image (Gemini does not fetch arbitrary URLs)
func (p *GeminiProvider) GenerateAltTag(ctx context.Context, imageURL string, cfg prompt.AltTagConfig) (*Completion, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	mimeType, payload, err := p.inlineImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	return p.send(ctx, []geminiPart{
		{Text: prompt.AltTag(cfg)},
		{InlineData: &geminiInlineData{MimeType: mimeType, Data: payload}},
	})
}

// GenerateText sends a text-only instruction
func (p *GeminiProvider) GenerateText(ctx context.Context, instruction string) (*Completion, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.send(ctx, []geminiPart{{Text: instruction}})
}

func (p *GeminiProvider) send(ctx context.Context, parts []geminiPart) (*Completion, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     p.config.Temperature,
			MaxOutputTokens: p.config.MaxTokens,
		},
	}

	endpoint := p.baseURL + "/models/" + url.PathEscape(p.config.Model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": p.config.APIKey}

	var resp geminiResponse
	if err := p.postJSON(ctx, endpoint, headers, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, &ParseError{Provider: ProviderGemini, Message: "no candidates in response"}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	usage := resp.UsageMetadata
	return p.completion(sb.String(), resp.ModelVersion, usage.PromptTokenCount, usage.CandidatesTokenCount, usage.TotalTokenCount)
}
