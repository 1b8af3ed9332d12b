package llm

import (
	"context"
	"strings"

	"metagen/prompt"
)

// OllamaProvider implements the Provider interface for a local Ollama server
type OllamaProvider struct {
	baseProvider
	baseURL string
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64, no data: prefix
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(cfg ProviderConfig, opts ...Option) (*OllamaProvider, error) {
	cfg.ProviderID = ProviderOllama
	baseURL := cfg.CustomEndpoint
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 120 // local models are slow to load
	}

	return &OllamaProvider{
		baseProvider: newBaseProvider(cfg, opts),
		baseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

// ValidateConfig overrides the base contract: a local server needs no API key
func (p *OllamaProvider) ValidateConfig(cfg ProviderConfig) error {
	if strings.TrimSpace(cfg.Model) == "" {
		return &ConfigurationError{Provider: ProviderOllama, Message: "model is required"}
	}
	return nil
}

// GenerateAltTag inlines the image; Ollama only accepts base64 images
func (p *OllamaProvider) GenerateAltTag(ctx context.Context, imageURL string, cfg prompt.AltTagConfig) (*Completion, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	_, payload, err := p.inlineImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	return p.send(ctx, ollamaMessage{
		Role:    "user",
		Content: prompt.AltTag(cfg),
		Images:  []string{payload},
	})
}

// GenerateText sends a text-only instruction
func (p *OllamaProvider) GenerateText(ctx context.Context, instruction string) (*Completion, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.send(ctx, ollamaMessage{Role: "user", Content: instruction})
}

func (p *OllamaProvider) send(ctx context.Context, msg ollamaMessage) (*Completion, error) {
	req := ollamaChatRequest{
		Model:    p.config.Model,
		Messages: []ollamaMessage{msg},
		Stream:   false,
		Options: ollamaOptions{
			Temperature: p.config.Temperature,
			NumPredict:  p.config.MaxTokens,
		},
	}

	var resp ollamaChatResponse
	if err := p.postJSON(ctx, p.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return nil, err
	}

	return p.completion(resp.Message.Content, resp.Model, resp.PromptEvalCount, resp.EvalCount, 0)
}
