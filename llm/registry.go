package llm

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Provider ids understood by the default registry
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderCustom = "custom"
)

// plannedProviders are recognised ids without an implementation yet
var plannedProviders = []string{"azure", "bedrock"}

// Option customises a provider at construction time
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     Logger
}

// WithHTTPClient makes the provider send requests through client
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger routes provider warnings to logger
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{},
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	if o.logger == nil {
		o.logger = nopLogger{}
	}
	return o
}

// Factory constructs a provider from its config
type Factory func(cfg ProviderConfig, opts ...Option) (Provider, error)

// Registry maps provider ids to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	planned   map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		planned:   make(map[string]bool),
	}
}

// DefaultRegistry returns a registry holding every built-in provider
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderOpenAI, func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		p, err := NewOpenAIProvider(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	r.Register(ProviderClaude, func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		p, err := NewClaudeProvider(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	r.Register(ProviderGemini, func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		p, err := NewGeminiProvider(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	r.Register(ProviderOllama, func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		p, err := NewOllamaProvider(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	r.Register(ProviderCustom, func(cfg ProviderConfig, opts ...Option) (Provider, error) {
		p, err := NewCustomProvider(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	for _, id := range plannedProviders {
		r.planned[id] = true
	}
	return r
}

// Register adds or replaces the factory for id
func (r *Registry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = normalizeID(id)
	r.factories[id] = factory
	delete(r.planned, id)
}

// Create instantiates the provider named by cfg.ProviderID. Unknown and
// not-yet-implemented ids return a *ConfigurationError naming the provider.
func (r *Registry) Create(cfg ProviderConfig, opts ...Option) (Provider, error) {
	id := normalizeID(cfg.ProviderID)

	r.mu.RLock()
	factory, ok := r.factories[id]
	planned := r.planned[id]
	r.mu.RUnlock()

	if !ok {
		if planned {
			return nil, &ConfigurationError{Provider: id, Message: "provider not implemented yet"}
		}
		if id == "" {
			return nil, &ConfigurationError{Message: "no provider selected"}
		}
		return nil, &ConfigurationError{Provider: id, Message: "unknown provider"}
	}

	cfg.ProviderID = id
	return factory(cfg, opts...)
}

// IDs returns the registered provider ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "anthropic" {
		return ProviderClaude
	}
	return id
}
